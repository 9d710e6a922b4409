package imagegen

import (
	"context"
	"log"

	"google.golang.org/genai"

	"knolling-factory/modules/common/gemini"
)

const layoutPrefix = "CRITICAL INSTRUCTION: Follow the structural layout EXACTLY as described. " +
	"This is a wireframe-guided generation. Maintain precise zone positioning. "

// ImagenBackend - PAID 티어: 텍스트 전용 Imagen 생성
type ImagenBackend struct {
	pool  *gemini.Pool
	model string
}

func NewImagenBackend(pool *gemini.Pool, model string) *ImagenBackend {
	return &ImagenBackend{pool: pool, model: model}
}

func (b *ImagenBackend) Name() string { return "imagen:" + b.model }

func (b *ImagenBackend) Render(ctx context.Context, req Request) ([]byte, error) {
	prompt := imagenPrompt(req)
	log.Printf("📤 [ImageGen] Imagen request to %s (%d chars)", b.model, len(prompt))

	resp, err := gemini.GenerateImagesWithRetry(ctx, b.pool, b.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, ErrNoImage
	}
	img := resp.GeneratedImages[0].Image
	if img == nil || len(img.ImageBytes) == 0 {
		return nil, ErrNoImage
	}
	return img.ImageBytes, nil
}

// imagenPrompt - Imagen은 이미지 입력이 없어서 와이어프레임이 있으면 레이아웃 지시를 앞에 붙임
func imagenPrompt(req Request) string {
	if len(req.Wireframe) > 0 {
		return layoutPrefix + req.Prompt
	}
	return req.Prompt
}
