package tracking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"knolling-factory/modules/common/database"
	"knolling-factory/modules/common/model"
)

type fakeStore struct {
	runs    []string
	updates []map[string]interface{}
	events  []database.EventRow
	err     error
}

func (s *fakeStore) InsertRun(ctx context.Context, run *model.Run) error {
	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, run.ID)
	return nil
}

func (s *fakeStore) UpdateRun(ctx context.Context, runID string, fields map[string]interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, fields)
	return nil
}

func (s *fakeStore) InsertEvent(ctx context.Context, event database.EventRow) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestSupabaseTrackerLifecycle(t *testing.T) {
	store := &fakeStore{}
	tr := NewSupabaseTracker(store)
	ctx := context.Background()
	run := model.NewRun("run-1", "Firefighter", time.Now())

	if err := tr.RecordStart(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := tr.RecordProgress(ctx, "run-1", "accepted cover", 1); err != nil {
		t.Fatal(err)
	}
	if err := tr.RecordCompletion(ctx, "run-1", "file:///out/book.pdf"); err != nil {
		t.Fatal(err)
	}

	if len(store.runs) != 1 || store.runs[0] != "run-1" {
		t.Fatalf("runs = %v", store.runs)
	}
	if len(store.updates) != 2 {
		t.Fatalf("updates = %v", store.updates)
	}
	if store.updates[0]["accepted_count"] != 1 || store.updates[1]["run_status"] != "COMPLETED" {
		t.Fatalf("updates = %v", store.updates)
	}
	if store.updates[1]["document_ref"] != "file:///out/book.pdf" {
		t.Fatalf("document ref not stored: %v", store.updates[1])
	}

	var kinds []string
	for _, e := range store.events {
		kinds = append(kinds, e.EventType)
	}
	if strings.Join(kinds, ",") != "start,progress,complete" {
		t.Fatalf("events = %v", kinds)
	}
}

func TestSupabaseTrackerFailure(t *testing.T) {
	store := &fakeStore{}
	tr := NewSupabaseTracker(store)

	if err := tr.RecordFailure(context.Background(), "run-2", "no artifacts produced"); err != nil {
		t.Fatal(err)
	}
	if store.updates[0]["run_status"] != "FAILED" || store.updates[0]["error_text"] != "no artifacts produced" {
		t.Fatalf("update = %v", store.updates[0])
	}
	if store.events[0].EventType != EventFailure || store.events[0].Message != "no artifacts produced" {
		t.Fatalf("event = %+v", store.events[0])
	}
}

func TestSupabaseTrackerPropagatesStoreError(t *testing.T) {
	tr := NewSupabaseTracker(&fakeStore{err: errors.New("503")})
	if err := tr.RecordProgress(context.Background(), "run-3", "x", 0); err == nil {
		t.Fatal("expected error")
	}
}

type countingTracker struct {
	LogTracker
	calls int
	err   error
}

func (c *countingTracker) RecordProgress(ctx context.Context, runID, status string, acceptedCount int) error {
	c.calls++
	return c.err
}

func TestMultiContinuesAfterError(t *testing.T) {
	failing := &countingTracker{err: errors.New("down")}
	ok := &countingTracker{}
	m := Multi{failing, nil, ok}

	err := m.RecordProgress(context.Background(), "run-4", "accepted cover", 1)
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("err = %v", err)
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Fatalf("calls = %d, %d", failing.calls, ok.calls)
	}
	if err := m.RecordStart(context.Background(), model.NewRun("run-4", "Chef", time.Now())); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
}
