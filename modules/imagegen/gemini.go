package imagegen

import (
	"context"
	"log"

	"google.golang.org/genai"

	"knolling-factory/modules/common/gemini"
)

// GeminiBackend - FREE 티어: 와이어프레임/레퍼런스 이미지를 함께 보내는 멀티모달 생성
type GeminiBackend struct {
	pool  *gemini.Pool
	model string
}

func NewGeminiBackend(pool *gemini.Pool, model string) *GeminiBackend {
	return &GeminiBackend{pool: pool, model: model}
}

func (b *GeminiBackend) Name() string { return "gemini:" + b.model }

func (b *GeminiBackend) Render(ctx context.Context, req Request) ([]byte, error) {
	parts := buildParts(req)
	log.Printf("📤 [ImageGen] Sending %d parts to %s", len(parts), b.model)

	resp, err := gemini.GenerateContentWithRetry(ctx, b.pool, b.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig: &genai.ImageConfig{
				AspectRatio: "1:1",
			},
		},
	)
	if err != nil {
		return nil, err
	}

	data := gemini.FirstInlineData(resp)
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}

// buildParts - 와이어프레임 → 스타일 레퍼런스 → 프롬프트 순서
func buildParts(req Request) []*genai.Part {
	var parts []*genai.Part
	if len(req.Wireframe) > 0 {
		parts = append(parts,
			genai.NewPartFromText("WIREFRAME REFERENCE (Follow this layout structure EXACTLY):"),
			&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: req.Wireframe}},
		)
	}
	for _, ref := range req.References {
		parts = append(parts,
			genai.NewPartFromText("STYLE REFERENCE (Match this visual DNA):"),
			&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: ref}},
		)
	}
	return append(parts, genai.NewPartFromText(req.Prompt))
}
