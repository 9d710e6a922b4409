package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"knolling-factory/modules/common/model"
)

// sequence - 협력 객체 호출 순서 기록
type sequence struct {
	mu     sync.Mutex
	events []string
}

func (s *sequence) add(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *sequence) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type fakePrompts struct {
	items []model.WorkItem
	err   error
	calls int
}

func (f *fakePrompts) GenerateBatch(ctx context.Context, theme string) ([]model.WorkItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.WorkItem(nil), f.items...), nil
}

type fakeGenerator struct {
	dir     string
	seq     *sequence
	failOn  map[string]error
	calls   map[string]int
	total   int
	prompts map[string][]string
}

func newFakeGenerator(t *testing.T, seq *sequence) *fakeGenerator {
	return &fakeGenerator{
		dir:     t.TempDir(),
		seq:     seq,
		failOn:  map[string]error{},
		calls:   map[string]int{},
		prompts: map[string][]string{},
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, item model.WorkItem, theme string) (string, error) {
	f.total++
	f.calls[item.Key]++
	f.prompts[item.Key] = append(f.prompts[item.Key], item.Prompt)
	if f.seq != nil {
		f.seq.add("generate:" + item.Key)
	}
	if err, ok := f.failOn[item.Key]; ok {
		return "", err
	}
	path := filepath.Join(f.dir, fmt.Sprintf("%s_%s_%d.png", theme, item.Key, f.calls[item.Key]))
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeGate - 파일명에 포함된 key로 판정
type fakeGate struct {
	// key → 통과하기 전까지 실패할 횟수 (-1이면 항상 실패)
	failures map[string]int
	seen     map[string]int
}

func newFakeGate() *fakeGate {
	return &fakeGate{failures: map[string]int{}, seen: map[string]int{}}
}

func (f *fakeGate) Check(ctx context.Context, path string) model.Verdict {
	base := filepath.Base(path)
	for key, n := range f.failures {
		if !strings.Contains(base, "_"+key+"_") {
			continue
		}
		f.seen[key]++
		if n < 0 || f.seen[key] <= n {
			return model.FailVerdict("%s does not match the wireframe", key)
		}
	}
	return model.PassVerdict()
}

type fakeAssembler struct {
	dir   string
	seq   *sequence
	calls int
	got   []model.Artifact
	err   error
	empty bool
}

func (f *fakeAssembler) Assemble(ctx context.Context, theme string, pages []model.Artifact) (string, error) {
	f.calls++
	f.got = append([]model.Artifact(nil), pages...)
	if f.seq != nil {
		f.seq.add("assemble")
	}
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "book.pdf")
	body := []byte("%PDF-1.4 fake")
	if f.empty {
		body = nil
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeTracker struct {
	seq         *sequence
	err         error
	starts      int
	progress    []string
	completions []string
	failures    []string
}

func (f *fakeTracker) RecordStart(ctx context.Context, run *model.Run) error {
	f.starts++
	f.seq.add("track:start")
	return f.err
}

func (f *fakeTracker) RecordProgress(ctx context.Context, runID, status string, count int) error {
	f.progress = append(f.progress, fmt.Sprintf("%s (%d)", status, count))
	f.seq.add("track:progress")
	return f.err
}

func (f *fakeTracker) RecordCompletion(ctx context.Context, runID, documentRef string) error {
	f.completions = append(f.completions, documentRef)
	f.seq.add("track:completion")
	return f.err
}

func (f *fakeTracker) RecordFailure(ctx context.Context, runID, errText string) error {
	f.failures = append(f.failures, errText)
	f.seq.add("track:failure")
	return f.err
}

type fakePublisher struct {
	ref string
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, runID, documentPath string, pages []model.Artifact) (string, error) {
	return f.ref, f.err
}

// recorder - observer 메시지 수집
type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Notify(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func item(slot model.SlotType, page int) model.WorkItem {
	return model.WorkItem{
		Slot:       slot,
		PageNumber: page,
		Prompt:     fmt.Sprintf("draw the %s page", slot),
	}
}

// harness - 기본 fake 묶음
type harness struct {
	seq       *sequence
	prompts   *fakePrompts
	generator *fakeGenerator
	gate      *fakeGate
	assembler *fakeAssembler
	tracker   *fakeTracker
}

func newHarness(t *testing.T, items ...model.WorkItem) *harness {
	t.Helper()
	seq := &sequence{}
	return &harness{
		seq:       seq,
		prompts:   &fakePrompts{items: items},
		generator: newFakeGenerator(t, seq),
		gate:      newFakeGate(),
		assembler: &fakeAssembler{dir: t.TempDir(), seq: seq},
		tracker:   &fakeTracker{seq: seq},
	}
}

func (h *harness) coordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	return h.coordinatorWith(t, nil, opts...)
}

func (h *harness) coordinatorWith(t *testing.T, publisher Publisher, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithRunIDs(func() string { return "run-test" })}, opts...)
	c, err := New(Dependencies{
		Prompts:   h.prompts,
		Generator: h.generator,
		Gate:      h.gate,
		Assembler: h.assembler,
		Tracker:   h.tracker,
		Publisher: publisher,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}
