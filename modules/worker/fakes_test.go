package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"knolling-factory/modules/common/model"
	"knolling-factory/modules/coordinator"
)

// fakeQueue - 메모리 Queue
type fakeQueue struct {
	mu        sync.Mutex
	jobs      []Job
	results   map[string]ResultRecord
	saves     []ResultRecord
	published map[string][]string
	pushErr   error
	popErr    error
	subs      map[string]chan string
	closed    map[string]int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		results:   map[string]ResultRecord{},
		published: map[string][]string{},
		subs:      map[string]chan string{},
		closed:    map[string]int{},
	}
}

func (q *fakeQueue) Push(ctx context.Context, job Job) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pushErr != nil {
		return 0, q.pushErr
	}
	q.jobs = append(q.jobs, job)
	return int64(len(q.jobs)), nil
}

func (q *fakeQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	q.mu.Lock()
	if q.popErr != nil {
		err := q.popErr
		q.popErr = nil
		q.mu.Unlock()
		return nil, err
	}
	if len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		return &job, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
		return nil, nil
	}
}

func (q *fakeQueue) Publish(ctx context.Context, requestID, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[requestID] = append(q.published[requestID], text)
	return nil
}

func (q *fakeQueue) SaveResult(ctx context.Context, rec ResultRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[rec.RequestID] = rec
	q.saves = append(q.saves, rec)
	return nil
}

func (q *fakeQueue) LoadResult(ctx context.Context, requestID string) (*ResultRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.results[requestID]
	if !ok {
		return nil, ErrResultNotFound
	}
	return &rec, nil
}

func (q *fakeQueue) Subscribe(ctx context.Context, requestID string) (<-chan string, func() error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch := make(chan string, 8)
	q.subs[requestID] = ch
	return ch, func() error {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed[requestID]++
		return nil
	}
}

func (q *fakeQueue) send(requestID, text string) bool {
	q.mu.Lock()
	ch, ok := q.subs[requestID]
	q.mu.Unlock()
	if ok {
		ch <- text
	}
	return ok
}

func (q *fakeQueue) closeCount(requestID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed[requestID]
}

func (q *fakeQueue) publishedFor(requestID string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.published[requestID]...)
}

func (q *fakeQueue) statuses(requestID string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, rec := range q.saves {
		if rec.RequestID == requestID {
			out = append(out, rec.Status)
		}
	}
	return out
}

// fakeRunner - Coordinator 대역
type fakeRunner struct {
	mu     sync.Mutex
	themes []string
	notes  []string
	err    error
	onRun  func()
	hold   time.Duration
	runErr []error
}

func (r *fakeRunner) Run(ctx context.Context, theme string, observer coordinator.Observer) (*model.JobResult, error) {
	r.mu.Lock()
	r.themes = append(r.themes, theme)
	r.mu.Unlock()
	if r.onRun != nil {
		r.onRun()
	}
	if r.hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.hold):
		}
	}
	r.mu.Lock()
	r.runErr = append(r.runErr, ctx.Err())
	r.mu.Unlock()
	for _, text := range r.notes {
		observer.Notify(ctx, text)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &model.JobResult{
		Status:       model.JobStatusSuccess,
		RunID:        "run-" + theme,
		Theme:        theme,
		DocumentPath: "/tmp/" + theme + ".pdf",
		DocumentRef:  "file:///tmp/" + theme + ".pdf",
		Accepted:     []model.Artifact{{Key: "cover", Slot: model.SlotCover, Path: "/tmp/cover.png"}},
	}, nil
}

func (r *fakeRunner) ranThemes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.themes...)
}

var errBoom = errors.New("boom")
