package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"knolling-factory/modules/common/model"
	"knolling-factory/modules/coordinator"
)

// Runner - 테마 하나를 끝까지 실행 (Coordinator)
type Runner interface {
	Run(ctx context.Context, theme string, observer coordinator.Observer) (*model.JobResult, error)
}

// Worker - 큐에서 요청을 하나씩 꺼내 동기 실행
type Worker struct {
	queue       Queue
	runner      Runner
	popTimeout  time.Duration
	retryDelay  time.Duration
	saveTimeout time.Duration
	now         func() time.Time
}

// NewWorker - Worker 생성
func NewWorker(queue Queue, runner Runner) *Worker {
	return &Worker{
		queue:       queue,
		runner:      runner,
		popTimeout:  5 * time.Second,
		retryDelay:  5 * time.Second,
		saveTimeout: 10 * time.Second,
		now:         time.Now,
	}
}

// Start - ctx가 끝날 때까지 큐 감시. ctx 취소는 진행 중인 Run에 전달되지 않음
func (w *Worker) Start(ctx context.Context) {
	log.Println("🔄 [Worker] Redis Queue Worker starting...")
	log.Println("👀 [Worker] Watching queue for knolling jobs")

	for {
		if ctx.Err() != nil {
			log.Println("🛑 [Worker] Stopped")
			return
		}

		job, err := w.queue.Pop(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("❌ [Worker] Queue error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}
		if job == nil {
			continue
		}

		log.Printf("🎯 [Worker] Received job %s (theme: %q)", job.RequestID, job.Theme)
		// 한 번에 하나만 실행. 종료 신호는 새 작업 수신만 멈추고 실행 중인 Run은 끝까지 감
		w.Process(context.WithoutCancel(ctx), *job)
	}
}

// Process - 요청 하나 실행 후 결과 저장
func (w *Worker) Process(ctx context.Context, job Job) *ResultRecord {
	rec := ResultRecord{RequestID: job.RequestID, Theme: job.Theme, Status: JobRunning}
	w.save(ctx, &rec)

	observer := coordinator.ObserverFunc(func(ctx context.Context, text string) error {
		return w.queue.Publish(ctx, job.RequestID, text)
	})

	started := w.now()
	result, err := w.runner.Run(ctx, job.Theme, observer)
	elapsed := w.now().Sub(started).Round(time.Second)

	if err != nil {
		rec.Status = JobFailed
		rec.Error = err.Error()
		if errors.Is(err, coordinator.ErrInvalidTheme) {
			log.Printf("⚠️  [Worker] Job %s rejected: %v", job.RequestID, err)
		} else {
			log.Printf("❌ [Worker] Job %s failed after %s: %v", job.RequestID, elapsed, err)
		}
		w.publish(ctx, job.RequestID, "❌ "+err.Error())
	} else {
		rec.Status = JobSuccess
		rec.Result = result
		log.Printf("✅ [Worker] Job %s completed in %s (%d accepted, %d rejected)",
			job.RequestID, elapsed, len(result.Accepted), result.Rejected)
		w.publish(ctx, job.RequestID, "✅ "+result.DocumentRef)
	}

	w.save(ctx, &rec)
	return &rec
}

// save - 결과 저장 (실패해도 worker는 계속)
func (w *Worker) save(ctx context.Context, rec *ResultRecord) {
	rec.UpdatedAt = w.now().UTC()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.saveTimeout)
	defer cancel()
	if err := w.queue.SaveResult(saveCtx, *rec); err != nil {
		log.Printf("⚠️  [Worker] Failed to save result for %s: %v", rec.RequestID, err)
	}
}

func (w *Worker) publish(ctx context.Context, requestID, text string) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.saveTimeout)
	defer cancel()
	if err := w.queue.Publish(pubCtx, requestID, text); err != nil {
		log.Printf("⚠️  [Worker] Failed to publish final status for %s: %v", requestID, err)
	}
}
