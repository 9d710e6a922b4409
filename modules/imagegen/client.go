package imagegen

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"knolling-factory/modules/common/model"
	"knolling-factory/modules/common/utils"
)

// Client - 페이지 1장 생성 후 TEMP_DIR에 PNG로 저장
type Client struct {
	backend Backend
	tempDir string
	delay   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewClient(backend Backend, tempDir string, delay time.Duration) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("image backend is required")
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Client{backend: backend, tempDir: tempDir, delay: delay, sleep: utils.SleepCtx, now: time.Now}, nil
}

// Generate - rate limit 대기 → 생성 → 저장. 반환값은 저장된 파일 경로
func (c *Client) Generate(ctx context.Context, item model.WorkItem, theme string) (string, error) {
	if err := c.sleep(ctx, c.delay); err != nil {
		return "", err
	}

	req := Request{Prompt: item.Prompt}
	if item.Wireframe != "" {
		if data, err := utils.LoadAsPNG(item.Wireframe); err != nil {
			log.Printf("⚠️  [ImageGen] Wireframe unavailable for %s: %v", item.Label(), err)
		} else {
			req.Wireframe = data
		}
	}
	for _, ref := range item.References {
		data, err := utils.LoadAsPNG(ref)
		if err != nil {
			log.Printf("⚠️  [ImageGen] Style reference unavailable for %s: %v", item.Label(), err)
			continue
		}
		req.References = append(req.References, data)
	}

	log.Printf("🎨 [ImageGen] Generating %s via %s", item.Label(), c.backend.Name())
	data, err := c.backend.Render(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", item.Label(), err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", item.Label(), ErrNoImage)
	}

	png, err := toPNG(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", item.Label(), err)
	}

	name := fmt.Sprintf("%s_%s_%d.png", utils.SafeFileName(theme), item.Label(), c.now().UnixNano())
	path := filepath.Join(c.tempDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	log.Printf("💾 [ImageGen] Saved %s (%d bytes)", path, len(png))
	return path, nil
}

// toPNG - 모델이 JPEG/WebP로 돌려줘도 PNG로 통일
func toPNG(data []byte) ([]byte, error) {
	img, format, err := utils.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if format == "png" {
		return data, nil
	}
	return utils.EncodePNG(img)
}
