package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	redisClient "knolling-factory/modules/common/redis"
)

// EnqueueHandler - 작업 등록 / 결과 조회 HTTP 핸들러
type EnqueueHandler struct {
	queue     Queue
	newID     func() string
	now       func() time.Time
	opTimeout time.Duration
}

// EnqueueRequest - Enqueue 요청
type EnqueueRequest struct {
	Theme string `json:"theme"`
}

// EnqueueResponse - Enqueue 응답
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// NewEnqueueHandler - EnqueueHandler 생성
func NewEnqueueHandler(queue Queue) *EnqueueHandler {
	return &EnqueueHandler{
		queue:     queue,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
		opTimeout: 10 * time.Second,
	}
}

// RegisterRoutes - 라우트 등록
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	r.HandleFunc("/jobs/{requestId}", h.HandleResult).Methods("GET")
	log.Println("✅ Job routes registered: /enqueue, /api/enqueue, /jobs/{requestId}")
}

// HandleEnqueue - POST /enqueue
func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Enqueue] Invalid request: %v", err)
		writeJSON(w, http.StatusBadRequest, EnqueueResponse{Error: "Invalid request body"})
		return
	}

	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		writeJSON(w, http.StatusBadRequest, EnqueueResponse{Error: "theme is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	job := Job{RequestID: h.newID(), Theme: theme, EnqueuedAt: h.now().UTC()}
	log.Printf("📥 [Enqueue] Received theme %q → request %s", theme, job.RequestID)

	// 조회 시 404가 나지 않도록 QUEUED 상태를 먼저 기록
	queued := ResultRecord{RequestID: job.RequestID, Theme: theme, Status: JobQueued, UpdatedAt: job.EnqueuedAt}
	if err := h.queue.SaveResult(ctx, queued); err != nil {
		log.Printf("⚠️  [Enqueue] Failed to store queued status: %v", err)
	}

	position, err := h.queue.Push(ctx, job)
	if err != nil {
		log.Printf("❌ [Enqueue] Push failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, EnqueueResponse{Error: err.Error()})
		return
	}

	log.Printf("✅ [Enqueue] Request %s enqueued successfully (position: %d)", job.RequestID, position)
	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		Success:       true,
		Message:       "Job enqueued successfully",
		RequestID:     job.RequestID,
		Queue:         redisClient.JobQueueKey,
		QueuePosition: position,
	})
}

// HandleResult - GET /jobs/{requestId}
func (h *EnqueueHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]

	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	rec, err := h.queue.LoadResult(ctx, requestID)
	switch {
	case errors.Is(err, ErrResultNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	case err != nil:
		log.Printf("❌ [Jobs] Failed to load %s: %v", requestID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
