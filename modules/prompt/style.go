package prompt

import (
	"context"
	"log"
	"os"
)

// StyleExtractor - 레퍼런스 이미지에서 스타일 DNA 텍스트 추출
type StyleExtractor interface {
	ExtractStyle(ctx context.Context, imagePath string) (string, error)
}

// StyleCache - 배치 하나 동안만 유지되는 스타일 DNA 캐시
type StyleCache struct {
	extractor StyleExtractor
	before    func(ctx context.Context) error
	entries   map[string]string
	calls     int
}

// NewStyleCache - before는 추출 호출 전마다 실행 (rate limit 대기)
func NewStyleCache(extractor StyleExtractor, before func(ctx context.Context) error) *StyleCache {
	return &StyleCache{extractor: extractor, before: before, entries: map[string]string{}}
}

// Get - key별로 최초 1회만 추출. 에셋이 없거나 추출 실패면 빈 DNA
func (c *StyleCache) Get(ctx context.Context, key, imagePath string) (string, error) {
	if dna, ok := c.entries[key]; ok {
		return dna, nil
	}

	dna := ""
	if c.extractor != nil && imagePath != "" {
		if _, err := os.Stat(imagePath); err == nil {
			if c.before != nil {
				if err := c.before(ctx); err != nil {
					return "", err
				}
			}
			c.calls++
			extracted, err := c.extractor.ExtractStyle(ctx, imagePath)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				log.Printf("⚠️  [Prompt] Style extraction failed for %s: %v", key, err)
			} else {
				dna = extracted
				log.Printf("🧬 [Prompt] Style DNA extracted for %s (%d chars)", key, len(dna))
			}
		} else {
			log.Printf("⚠️  [Prompt] Style reference missing for %s: %s", key, imagePath)
		}
	}

	c.entries[key] = dna
	return dna, nil
}

// Extractions - 실제 추출 호출 횟수
func (c *StyleCache) Extractions() int { return c.calls }
