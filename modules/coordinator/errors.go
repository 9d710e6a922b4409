package coordinator

import "errors"

// Run을 중단시키는 에러 분류. 모두 %w로 감싸서 반환되므로 errors.Is로 구분
var (
	ErrInvalidTheme = errors.New("theme is required")
	ErrPromptBatch  = errors.New("prompt batch generation failed")
	ErrGeneration   = errors.New("image generation failed")
	ErrNoArtifacts  = errors.New("no artifacts produced")
	ErrAssembly     = errors.New("document assembly failed")
)
