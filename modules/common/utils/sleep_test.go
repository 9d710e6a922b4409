package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSleepCtx(t *testing.T) {
	if err := SleepCtx(context.Background(), 0); err != nil {
		t.Fatalf("zero delay: %v", err)
	}
	if err := SleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short delay: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepCtx(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancelled sleep did not return promptly")
	}
	if err := SleepCtx(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx with zero delay: %v", err)
	}
}
