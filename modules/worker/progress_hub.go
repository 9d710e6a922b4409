package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Subscriber - request id별 진행 상황 구독
type Subscriber interface {
	Subscribe(ctx context.Context, requestID string) (<-chan string, func() error)
}

// ProgressMessage - websocket으로 내려가는 메시지
type ProgressMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
}

// HubMetrics - 세션 통계
type HubMetrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
}

type progressClient struct {
	conn *websocket.Conn
	send chan []byte
}

// progressSession - request id 하나를 보는 클라이언트 묶음. Redis 구독은 세션당 1개
type progressSession struct {
	id        string
	clients   map[*progressClient]struct{}
	createdAt time.Time
	stop      func()
}

// ProgressHub - request id별 websocket 세션 관리
type ProgressHub struct {
	subscriber Subscriber

	mu       sync.Mutex
	sessions map[string]*progressSession
	metrics  HubMetrics
}

// NewProgressHub - ProgressHub 생성
func NewProgressHub(subscriber Subscriber) *ProgressHub {
	return &ProgressHub{
		subscriber: subscriber,
		sessions:   make(map[string]*progressSession),
		metrics:    HubMetrics{StartTime: time.Now()},
	}
}

// HandleWebSocket - GET /ws?request=<id>
func (h *ProgressHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request")
	if requestID == "" {
		log.Printf("⚠️  [Progress] Missing request parameter")
		http.Error(w, "request parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &progressClient{conn: conn, send: make(chan []byte, 256)}
	s := h.join(requestID, c)

	go c.writePump()
	go h.readPump(s, c)
}

// join - 세션 가져오기 또는 생성 + 클라이언트 추가
func (h *ProgressHub) join(requestID string, c *progressClient) *progressSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, exists := h.sessions[requestID]
	if !exists {
		ctx, cancel := context.WithCancel(context.Background())
		updates, closeSub := h.subscriber.Subscribe(ctx, requestID)
		s = &progressSession{
			id:        requestID,
			clients:   make(map[*progressClient]struct{}),
			createdAt: time.Now(),
			stop: func() {
				cancel()
				if err := closeSub(); err != nil {
					log.Printf("⚠️  [Progress] Failed to close subscription %s: %v", requestID, err)
				}
			},
		}
		h.sessions[requestID] = s
		h.metrics.TotalSessions++
		h.metrics.ActiveSessions++
		go h.pump(s, updates)

		log.Printf("✅ [Progress] Created session for request %s (Active: %d)", requestID, h.metrics.ActiveSessions)
	}

	s.clients[c] = struct{}{}
	h.metrics.TotalConnections++
	log.Printf("👤 [Progress] Client joined %s (Clients: %d)", requestID, len(s.clients))
	return s
}

// leave - 클라이언트 제거
func (h *ProgressHub) leave(s *progressSession, c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s, c)
}

// removeLocked - h.mu 보유 상태에서 호출. 마지막 클라이언트면 구독 해제
func (h *ProgressHub) removeLocked(s *progressSession, c *progressClient) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	close(c.send)
	delete(s.clients, c)
	log.Printf("👋 [Progress] Client left %s (Remaining: %d)", s.id, len(s.clients))

	if len(s.clients) == 0 && h.sessions[s.id] == s {
		delete(h.sessions, s.id)
		h.metrics.ActiveSessions--
		s.stop()
		log.Printf("🧹 [Progress] Closed session %s", s.id)
	}
}

// pump - 구독 채널 → 세션 전체 브로드캐스트
func (h *ProgressHub) pump(s *progressSession, updates <-chan string) {
	for text := range updates {
		payload, err := json.Marshal(ProgressMessage{Type: "progress", RequestID: s.id, Text: text})
		if err != nil {
			log.Printf("Error marshaling message: %v", err)
			continue
		}
		h.broadcast(s, payload)
	}
}

func (h *ProgressHub) broadcast(s *progressSession, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			// 느린 클라이언트는 끊음
			h.removeLocked(s, c)
		}
	}
}

// Metrics - 현재 통계 스냅샷
func (h *ProgressHub) Metrics() HubMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.metrics
}

// SessionClients - request id에 붙은 클라이언트 수 (없으면 0)
func (h *ProgressHub) SessionClients(requestID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[requestID]; ok {
		return len(s.clients)
	}
	return 0
}

// readPump - 클라이언트 메시지는 무시하고 연결 종료만 감지
func (h *ProgressHub) readPump(s *progressSession, c *progressClient) {
	defer func() {
		h.leave(s, c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (c *progressClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
