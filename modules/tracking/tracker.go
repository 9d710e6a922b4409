package tracking

import (
	"context"
	"errors"
	"log"

	"knolling-factory/modules/common/model"
)

// LogTracker - 로그만 남기는 Tracker
type LogTracker struct{}

func (LogTracker) RecordStart(ctx context.Context, run *model.Run) error {
	log.Printf("📊 [Tracker] Run %s started: theme=%q status=%s", run.ID, run.Theme, run.Status)
	return nil
}

func (LogTracker) RecordProgress(ctx context.Context, runID, status string, acceptedCount int) error {
	log.Printf("📊 [Tracker] Run %s: %s (%d accepted)", runID, status, acceptedCount)
	return nil
}

func (LogTracker) RecordCompletion(ctx context.Context, runID, documentRef string) error {
	log.Printf("📊 [Tracker] Run %s completed: %s", runID, documentRef)
	return nil
}

func (LogTracker) RecordFailure(ctx context.Context, runID, errText string) error {
	log.Printf("📊 [Tracker] Run %s failed: %s", runID, errText)
	return nil
}

// Tracker - coordinator.Tracker와 같은 메서드 집합
type Tracker interface {
	RecordStart(ctx context.Context, run *model.Run) error
	RecordProgress(ctx context.Context, runID, status string, acceptedCount int) error
	RecordCompletion(ctx context.Context, runID, documentRef string) error
	RecordFailure(ctx context.Context, runID, errText string) error
}

// Multi - 여러 Tracker에 순서대로 기록. 하나가 실패해도 나머지는 계속
type Multi []Tracker

func (m Multi) RecordStart(ctx context.Context, run *model.Run) error {
	return m.each(func(t Tracker) error { return t.RecordStart(ctx, run) })
}

func (m Multi) RecordProgress(ctx context.Context, runID, status string, acceptedCount int) error {
	return m.each(func(t Tracker) error { return t.RecordProgress(ctx, runID, status, acceptedCount) })
}

func (m Multi) RecordCompletion(ctx context.Context, runID, documentRef string) error {
	return m.each(func(t Tracker) error { return t.RecordCompletion(ctx, runID, documentRef) })
}

func (m Multi) RecordFailure(ctx context.Context, runID, errText string) error {
	return m.each(func(t Tracker) error { return t.RecordFailure(ctx, runID, errText) })
}

func (m Multi) each(fn func(Tracker) error) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := fn(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
