package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"knolling-factory/modules/common/config"
	redisClient "knolling-factory/modules/common/redis"
	"knolling-factory/modules/factory"
	"knolling-factory/modules/worker"
)

const serviceName = "knolling-factory"

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// metricsHandler - progress 세션 통계
func metricsHandler(hub *worker.ProgressHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := hub.Metrics()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"uptime":  time.Since(m.StartTime).Round(time.Second).String(),
			"metrics": m,
		})
	}
}

// NewRouter - HTTP 라우트 구성
func NewRouter(queue worker.Queue, hub *worker.ProgressHub) *mux.Router {
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.HandleWebSocket)
	r.HandleFunc("/metrics", metricsHandler(hub)).Methods("GET")
	worker.NewEnqueueHandler(queue).RegisterRoutes(r)
	return r
}

// Run - Redis 연결, worker 시작, HTTP 서버 실행. ctx가 끝나면 graceful shutdown
func Run(ctx context.Context, cfg *config.Config) error {
	rdb, err := redisClient.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer rdb.Close()

	app, err := factory.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer app.Close()

	queue := worker.NewRedisQueue(rdb)
	hub := worker.NewProgressHub(queue)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.NewWorker(queue, app.Coordinator).Start(workerCtx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(queue, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Knolling Factory Server starting on port %s", cfg.Port)
	log.Printf("📡 Progress endpoint: ws://localhost:%s/ws?request=<id>", cfg.Port)
	log.Printf("📥 Enqueue: http://localhost:%s/enqueue", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Println("🛑 Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown error: %v", err)
	}

	// 실행 중인 Run은 끝까지 기다림
	stopWorker()
	<-workerDone
	return nil
}
