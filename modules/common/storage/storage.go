package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/model"
	"knolling-factory/modules/common/utils"
)

// ErrUnsupportedBackend - STORAGE_BACKEND 값이 잘못됨
var ErrUnsupportedBackend = errors.New("unsupported storage backend")

const (
	previewMaxSide = 1024
	previewQuality = 80
)

// Uploader - 바이트를 key에 저장하고 참조 URI 반환
type Uploader interface {
	Name() string
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Publisher - 완성 PDF(+ 페이지 WebP 미리보기)를 저장소에 올림
type Publisher struct {
	uploader Uploader
	previews bool
}

func NewPublisher(uploader Uploader, previews bool) *Publisher {
	return &Publisher{uploader: uploader, previews: previews}
}

// New - 설정에 맞는 Publisher 생성
func New(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	switch cfg.StorageBackend {
	case "", config.StorageLocal:
		return NewPublisher(NewLocalUploader(filepath.Join(cfg.OutputDir, "published")), false), nil
	case config.StorageSupabase:
		return NewPublisher(NewSupabaseUploader(cfg), true), nil
	case config.StorageS3:
		up, err := NewS3Uploader(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		return NewPublisher(up, true), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.StorageBackend)
}

// Publish - runs/<runID>/<file> 에 문서를 올리고 참조 반환
func (p *Publisher) Publish(ctx context.Context, runID, documentPath string, pages []model.Artifact) (string, error) {
	data, err := os.ReadFile(documentPath)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	key := DocumentKey(runID, documentPath)
	log.Printf("📤 [Storage] Uploading %s via %s (%d bytes)", key, p.uploader.Name(), len(data))
	ref, err := p.uploader.Put(ctx, key, "application/pdf", data)
	if err != nil {
		return "", err
	}

	if p.previews {
		uploaded := p.uploadPreviews(ctx, runID, pages)
		log.Printf("🖼️  [Storage] %d/%d page previews uploaded", uploaded, len(pages))
	}

	log.Printf("✅ [Storage] Published %s", ref)
	return ref, nil
}

// uploadPreviews - 미리보기는 best-effort
func (p *Publisher) uploadPreviews(ctx context.Context, runID string, pages []model.Artifact) int {
	uploaded := 0
	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		img, err := utils.LoadImageFile(page.Path)
		if err != nil {
			log.Printf("⚠️  [Storage] Preview skipped for %s: %v", page.Key, err)
			continue
		}
		webp, err := utils.EncodeWebPPreview(img, previewMaxSide, previewQuality)
		if err != nil {
			log.Printf("⚠️  [Storage] Preview encode failed for %s: %v", page.Key, err)
			continue
		}
		if _, err := p.uploader.Put(ctx, PreviewKey(runID, page.Key), "image/webp", webp); err != nil {
			log.Printf("⚠️  [Storage] Preview upload failed for %s: %v", page.Key, err)
			continue
		}
		uploaded++
	}
	return uploaded
}

// DocumentKey - runs/<runID>/<document file name>
func DocumentKey(runID, documentPath string) string {
	return path.Join("runs", runID, filepath.Base(documentPath))
}

// PreviewKey - runs/<runID>/previews/<page key>.webp
func PreviewKey(runID, pageKey string) string {
	return path.Join("runs", runID, "previews", pageKey+".webp")
}

// applyPrefix - prefix가 있으면 prefix/key
func applyPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
