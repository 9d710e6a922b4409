package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"knolling-factory/modules/common/config"
)

// SupabaseUploader - Supabase Storage REST 업로드
type SupabaseUploader struct {
	baseURL    string
	serviceKey string
	bucket     string
	publicBase string
	httpClient *http.Client
}

func NewSupabaseUploader(cfg *config.Config) *SupabaseUploader {
	return &SupabaseUploader{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		serviceKey: cfg.SupabaseServiceKey,
		bucket:     cfg.SupabaseBucket,
		publicBase: cfg.SupabaseStorageBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (u *SupabaseUploader) Name() string { return "supabase:" + u.bucket }

func (u *SupabaseUploader) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return u.PublicURL(key), nil
}

// PublicURL - SUPABASE_STORAGE_BASE_URL이 있으면 그걸, 없으면 public object URL
func (u *SupabaseUploader) PublicURL(key string) string {
	if u.publicBase != "" {
		return strings.TrimRight(u.publicBase, "/") + "/" + key
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, key)
}
