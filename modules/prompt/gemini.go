package prompt

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"knolling-factory/modules/common/gemini"
)

const styleInstruction = "Analyze this coloring book reference page. Describe its visual DNA in one dense paragraph: " +
	"line weight, outline style, character proportions, object density, framing, typography feel. " +
	"Do not describe the subject matter."

// GeminiWriter - generative-ai-go 기반 Writer / StyleExtractor
type GeminiWriter struct {
	keys  []string
	model string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGeminiWriter - API 키 목록과 텍스트 모델 이름으로 생성
func NewGeminiWriter(keys []string, modelName string) (*GeminiWriter, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}
	if modelName == "" {
		return nil, fmt.Errorf("prompt model is required")
	}
	return &GeminiWriter{keys: keys, model: modelName, clients: map[string]*genai.Client{}}, nil
}

func (w *GeminiWriter) client(ctx context.Context, key string) (*genai.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	w.clients[key] = c
	return c, nil
}

// Complete - 텍스트 지시문 하나를 보내고 텍스트 응답 반환
func (w *GeminiWriter) Complete(ctx context.Context, instruction string) (string, error) {
	return w.generate(ctx, genai.Text(instruction))
}

// ExtractStyle - 레퍼런스 이미지를 보내 스타일 DNA 텍스트 추출
func (w *GeminiWriter) ExtractStyle(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read style reference: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(imagePath)), ".")
	if format == "jpg" {
		format = "jpeg"
	}
	if format == "" {
		format = "png"
	}
	return w.generate(ctx, genai.ImageData(format, data), genai.Text(styleInstruction))
}

func (w *GeminiWriter) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	return gemini.WithKeyRotation(ctx, w.keys, func(ctx context.Context, key string) (string, error) {
		client, err := w.client(ctx, key)
		if err != nil {
			return "", err
		}
		m := client.GenerativeModel(w.model)
		m.SetTemperature(0.7)

		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			return "", err
		}
		text := responseText(resp)
		if text == "" {
			return "", fmt.Errorf("empty response from %s", w.model)
		}
		return text, nil
	})
}

// Close - 키별 클라이언트 정리
func (w *GeminiWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, c := range w.clients {
		if err := c.Close(); err != nil {
			log.Printf("⚠️  [Prompt] Failed to close Gemini client: %v", err)
		}
		delete(w.clients, key)
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
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
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
