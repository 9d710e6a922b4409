package tracking

import (
	"context"
	"fmt"
	"log"

	"knolling-factory/modules/common/database"
	"knolling-factory/modules/common/model"
)

// RunStore - Run 레코드 저장소 (database.Client)
type RunStore interface {
	InsertRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, runID string, fields map[string]interface{}) error
	InsertEvent(ctx context.Context, event database.EventRow) error
}

// 이벤트 종류
const (
	EventStart    = "start"
	EventProgress = "progress"
	EventComplete = "complete"
	EventFailure  = "failure"
)

// SupabaseTracker - knolling_runs 갱신 + knolling_run_events 추가
type SupabaseTracker struct {
	store RunStore
}

func NewSupabaseTracker(store RunStore) *SupabaseTracker {
	return &SupabaseTracker{store: store}
}

func (t *SupabaseTracker) RecordStart(ctx context.Context, run *model.Run) error {
	if err := t.store.InsertRun(ctx, run); err != nil {
		return err
	}
	return t.event(ctx, run.ID, EventStart, "theme: "+run.Theme, 0)
}

func (t *SupabaseTracker) RecordProgress(ctx context.Context, runID, status string, acceptedCount int) error {
	if err := t.store.UpdateRun(ctx, runID, map[string]interface{}{
		"run_status":     string(model.StatusInProgress),
		"accepted_count": acceptedCount,
	}); err != nil {
		return err
	}
	return t.event(ctx, runID, EventProgress, status, acceptedCount)
}

func (t *SupabaseTracker) RecordCompletion(ctx context.Context, runID, documentRef string) error {
	if err := t.store.UpdateRun(ctx, runID, map[string]interface{}{
		"run_status":   string(model.StatusCompleted),
		"document_ref": documentRef,
	}); err != nil {
		return err
	}
	log.Printf("✅ [Tracker] Run %s marked COMPLETED", runID)
	return t.event(ctx, runID, EventComplete, documentRef, 0)
}

func (t *SupabaseTracker) RecordFailure(ctx context.Context, runID, errText string) error {
	if err := t.store.UpdateRun(ctx, runID, map[string]interface{}{
		"run_status": string(model.StatusFailed),
		"error_text": errText,
	}); err != nil {
		return err
	}
	log.Printf("❌ [Tracker] Run %s marked FAILED: %s", runID, errText)
	return t.event(ctx, runID, EventFailure, errText, 0)
}

func (t *SupabaseTracker) event(ctx context.Context, runID, kind, message string, count int) error {
	err := t.store.InsertEvent(ctx, database.EventRow{
		RunID:     runID,
		EventType: kind,
		Message:   message,
		Count:     count,
	})
	if err != nil {
		return fmt.Errorf("%s event: %w", kind, err)
	}
	return nil
}
