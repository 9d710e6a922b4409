package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/server"
)

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
