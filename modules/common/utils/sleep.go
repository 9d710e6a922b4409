package utils

import (
	"context"
	"time"
)

// SleepCtx - rate limit 딜레이. ctx가 끝나면 즉시 반환
func SleepCtx(ctx context.Context, d time.Duration) error {
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
