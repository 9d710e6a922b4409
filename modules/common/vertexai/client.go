package vertexai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"knolling-factory/modules/common/config"
)

// NewClient - Vertex AI 클라이언트 생성 (자격 증명은 환경변수 → 파일 → ADC 순)
func NewClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	if cfg.VertexAIProject == "" {
		return nil, fmt.Errorf("VERTEXAI_PROJECT is required")
	}

	opts, source, err := credentialOptions(os.Getenv("VERTEXAI_CREDENTIALS_JSON"), os.Getenv("VERTEXAI_CREDENTIALS_PATH"))
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [VertexAI] Using %s", source)

	client, err := genai.NewClient(ctx, cfg.VertexAIProject, cfg.VertexAILocation, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Printf("✅ [VertexAI] Client initialized for project=%s, location=%s", cfg.VertexAIProject, cfg.VertexAILocation)
	return client, nil
}

// credentialOptions - 자격 증명 소스 결정
func credentialOptions(credsJSON, credsPath string) ([]option.ClientOption, string, error) {
	if credsJSON != "" {
		if !json.Valid([]byte(credsJSON)) {
			return nil, "", fmt.Errorf("invalid JSON in VERTEXAI_CREDENTIALS_JSON")
		}
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credsJSON))}, "VERTEXAI_CREDENTIALS_JSON", nil
	}

	if credsPath != "" {
		data, err := os.ReadFile(credsPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read credentials file: %w", err)
		}
		if !json.Valid(data) {
			return nil, "", fmt.Errorf("invalid JSON credentials in %s", credsPath)
		}
		return []option.ClientOption{option.WithCredentialsJSON(data)}, "credentials file " + credsPath, nil
	}

	// Application Default Credentials
	return nil, "application default credentials", nil
}
