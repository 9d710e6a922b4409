package qa

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"knolling-factory/modules/common/gemini"
)

// GeminiEvaluator - Gemini API 비전 모델 (JSON 응답)
type GeminiEvaluator struct {
	pool  *gemini.Pool
	model string
}

func NewGeminiEvaluator(pool *gemini.Pool, model string) *GeminiEvaluator {
	return &GeminiEvaluator{pool: pool, model: model}
}

func (e *GeminiEvaluator) Name() string { return "gemini:" + e.model }

func (e *GeminiEvaluator) Evaluate(ctx context.Context, png []byte, instruction string) (string, error) {
	content := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: png}},
			genai.NewPartFromText(instruction),
		},
	}
	resp, err := gemini.GenerateContentWithRetry(ctx, e.pool, e.model, []*genai.Content{content},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}
