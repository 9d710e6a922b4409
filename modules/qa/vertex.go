package qa

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexEvaluator - Vertex AI 비전 모델
type VertexEvaluator struct {
	client *genai.Client
	model  string
}

func NewVertexEvaluator(client *genai.Client, model string) *VertexEvaluator {
	return &VertexEvaluator{client: client, model: model}
}

func (e *VertexEvaluator) Name() string { return "vertex:" + e.model }

func (e *VertexEvaluator) Evaluate(ctx context.Context, png []byte, instruction string) (string, error) {
	m := e.client.GenerativeModel(e.model)
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.ImageData("png", png), genai.Text(instruction))
	if err != nil {
		return "", fmt.Errorf("Vertex AI call failed: %w", err)
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response from %s", e.model)
	}
	return b.String(), nil
}
