package imagegen

import (
	"context"
	"errors"
)

// ErrNoImage - 모델 응답에 이미지가 없음
var ErrNoImage = errors.New("no image data in response")

// Request - 이미지 1장 생성 요청
type Request struct {
	Prompt     string
	Wireframe  []byte
	References [][]byte
}

// Backend - 티어별 이미지 생성 방식
type Backend interface {
	Name() string
	Render(ctx context.Context, req Request) ([]byte, error)
}
