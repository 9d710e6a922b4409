package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalUploader - 로컬 디렉터리에 저장, file:// 참조
type LocalUploader struct {
	root string
}

func NewLocalUploader(root string) *LocalUploader {
	return &LocalUploader{root: root}
}

func (u *LocalUploader) Name() string { return "local" }

func (u *LocalUploader) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(u.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	return "file://" + filepath.ToSlash(abs), nil
}
