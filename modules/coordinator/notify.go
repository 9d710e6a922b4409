package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// 진행 단계 이름
const (
	PhasePrompts  = "prompt generation"
	PhaseImages   = "image generation & QA"
	PhaseAssembly = "assembly"
)

// Progress - observer에 전달되는 체크포인트
type Progress struct {
	Phase  string
	Done   int
	Total  int
	Status string
}

func (p Progress) String() string {
	return fmt.Sprintf("[%s] %d/%d - %s", p.Phase, p.Done, p.Total, p.Status)
}

// Observer - 진행 상황 수신자. 느리거나 실패해도 Run에는 영향 없음
type Observer interface {
	Notify(ctx context.Context, text string) error
}

// ObserverFunc - 함수를 Observer로 사용
type ObserverFunc func(ctx context.Context, text string) error

func (f ObserverFunc) Notify(ctx context.Context, text string) error {
	return f(ctx, text)
}

// dispatcher - 순서를 지키며 별도 goroutine에서 observer 호출. send는 절대 블록되지 않음
type dispatcher struct {
	ctx      context.Context
	observer Observer

	mu      sync.Mutex
	pending []string
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newDispatcher(ctx context.Context, observer Observer) *dispatcher {
	d := &dispatcher{
		ctx:      context.WithoutCancel(ctx),
		observer: observer,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if observer == nil {
		close(d.done)
		return d
	}
	go d.loop()
	return d
}

func (d *dispatcher) send(p Progress) {
	if d.observer == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = append(d.pending, p.String())
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch, closed := d.pending, d.closed
		d.pending = nil
		d.mu.Unlock()

		for _, text := range batch {
			d.deliver(text)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}

func (d *dispatcher) deliver(text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  [Coordinator] Progress observer panicked: %v", r)
		}
	}()
	if err := d.observer.Notify(d.ctx, text); err != nil {
		log.Printf("⚠️  [Coordinator] Progress observer failed: %v", err)
	}
}

// close - 남은 메시지를 timeout까지 기다려 전달
func (d *dispatcher) close(timeout time.Duration) {
	if d.observer == nil {
		return
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}

	select {
	case <-d.done:
	case <-time.After(timeout):
		log.Printf("⚠️  [Coordinator] Progress observer still busy after %v, detaching", timeout)
	}
}
