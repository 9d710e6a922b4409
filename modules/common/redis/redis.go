package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"knolling-factory/modules/common/config"
)

// 큐/채널 키
const (
	JobQueueKey     = "knolling:jobs"
	resultKeyPrefix = "knolling:result:"
	progressPrefix  = "knolling:progress:"
)

// ResultTTL - 결과 보관 기간
const ResultTTL = 24 * time.Hour

// ResultKey - request id별 결과 키
func ResultKey(requestID string) string {
	return resultKeyPrefix + requestID
}

// ProgressChannel - request id별 진행 상황 pub/sub 채널
func ProgressChannel(requestID string) string {
	return progressPrefix + requestID
}

// Connect - Redis 연결 생성
func Connect(cfg *config.Config) (*redis.Client, error) {
	log.Printf("🔌 Connecting to Redis: %s", cfg.GetRedisAddr())

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// 연결 테스트
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Println("✅ Redis connected successfully")
	return rdb, nil
}
