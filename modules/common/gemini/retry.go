package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const maxRetriesPerKey = 3

// retryWait - 429 이후 같은 키로 재시도 전 대기 시간
var retryWait = 2 * time.Second

// Pool - API 키 목록과 키별 genai 클라이언트 캐시
type Pool struct {
	keys []string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewPool - 키 목록으로 Pool 생성 (빈 키는 제외)
func NewPool(keys []string) (*Pool, error) {
	var filtered []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}
	return &Pool{keys: filtered, clients: map[string]*genai.Client{}}, nil
}

// Keys - 키 개수
func (p *Pool) Keys() int { return len(p.keys) }

func (p *Pool) client(ctx context.Context, key string) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	return c, nil
}

// Do - 키별 클라이언트로 call 실행. 429면 같은 키로 재시도 후 다음 키로 넘어감
func Do[T any](ctx context.Context, p *Pool, call func(ctx context.Context, client *genai.Client) (T, error)) (T, error) {
	return WithKeyRotation(ctx, p.keys, func(ctx context.Context, key string) (T, error) {
		var zero T
		client, err := p.client(ctx, key)
		if err != nil {
			return zero, fmt.Errorf("failed to create genai client: %w", err)
		}
		return call(ctx, client)
	})
}

// WithKeyRotation - 429 에러 시 여러 API 키로 재시도하는 헬퍼 함수
// 각 키당 최대 3번 재시도, 429가 아닌 에러는 바로 반환
func WithKeyRotation[T any](ctx context.Context, apiKeys []string, call func(ctx context.Context, apiKey string) (T, error)) (T, error) {
	var zero T
	if len(apiKeys) == 0 {
		return zero, fmt.Errorf("no API keys provided")
	}

	var lastErr error

	// 각 API 키로 시도
	for keyIndex, apiKey := range apiKeys {
		if len(apiKeys) > 1 {
			log.Printf("🔑 [Gemini Retry] Trying API key #%d/%d", keyIndex+1, len(apiKeys))
		}

		for attempt := 1; attempt <= maxRetriesPerKey; attempt++ {
			if attempt > 1 {
				log.Printf("   🔄 Retry attempt %d/%d for key #%d", attempt, maxRetriesPerKey, keyIndex+1)
			}

			result, err := call(ctx, apiKey)
			if err == nil {
				return result, nil
			}
			lastErr = err

			// 429가 아닌 다른 에러면 바로 반환 (재시도 안 함)
			if !IsRateLimit(err) {
				return zero, err
			}

			log.Printf("⚠️  [Gemini Retry] Key #%d hit rate limit (429) on attempt %d/%d", keyIndex+1, attempt, maxRetriesPerKey)

			// 마지막 시도가 아니면 대기 후 재시도
			if attempt < maxRetriesPerKey {
				if err := sleep(ctx, retryWait); err != nil {
					return zero, err
				}
			}
		}

		log.Printf("⚠️  [Gemini Retry] Key #%d exhausted all %d attempts, trying next key...", keyIndex+1, maxRetriesPerKey)
	}

	// 모든 키 실패
	return zero, fmt.Errorf("all %d API keys exhausted (%d attempts each), last error: %w", len(apiKeys), maxRetriesPerKey, lastErr)
}

// GenerateContentWithRetry - GenerateContent + 키 로테이션
func GenerateContentWithRetry(
	ctx context.Context,
	p *Pool,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	return Do(ctx, p, func(ctx context.Context, client *genai.Client) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, contents, config)
	})
}

// GenerateImagesWithRetry - Imagen GenerateImages + 키 로테이션
func GenerateImagesWithRetry(
	ctx context.Context,
	p *Pool,
	model string,
	prompt string,
	config *genai.GenerateImagesConfig,
) (*genai.GenerateImagesResponse, error) {
	return Do(ctx, p, func(ctx context.Context, client *genai.Client) (*genai.GenerateImagesResponse, error) {
		return client.Models.GenerateImages(ctx, model, prompt, config)
	})
}

// IsRateLimit - 429 Rate Limit 에러인지 확인
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "resource_exhausted")
}

// FirstInlineData - 응답 후보에서 첫 번째 이미지 바이트 추출
func FirstInlineData(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
