package coordinator

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/model"
)

// PromptService - 테마 하나에 대한 전체 Work Item 배치 생성 (커버 포함)
type PromptService interface {
	GenerateBatch(ctx context.Context, theme string) ([]model.WorkItem, error)
}

// ImageGenerator - 아이템 프롬프트로 이미지를 만들고 로컬 경로 반환. 호출 간 딜레이는 구현체 책임
type ImageGenerator interface {
	Generate(ctx context.Context, item model.WorkItem, theme string) (string, error)
}

// QualityGate - 이미지 검수. 기술적 실패도 FAIL 판정으로 돌려줌
type QualityGate interface {
	Check(ctx context.Context, artifactPath string) model.Verdict
}

// Assembler - 통과한 페이지를 순서대로 하나의 문서로 합침
type Assembler interface {
	Assemble(ctx context.Context, theme string, pages []model.Artifact) (string, error)
}

// Tracker - Run 이벤트 기록 (best-effort)
type Tracker interface {
	RecordStart(ctx context.Context, run *model.Run) error
	RecordProgress(ctx context.Context, runID, status string, count int) error
	RecordCompletion(ctx context.Context, runID, documentRef string) error
	RecordFailure(ctx context.Context, runID, errText string) error
}

// Publisher - 완성 문서를 외부 저장소에 올리고 참조 URI 반환
type Publisher interface {
	Publish(ctx context.Context, runID, documentPath string, pages []model.Artifact) (string, error)
}

// Dependencies - Coordinator 협력 객체들. Tracker/Publisher는 선택
type Dependencies struct {
	Prompts   PromptService
	Generator ImageGenerator
	Gate      QualityGate
	Assembler Assembler
	Tracker   Tracker
	Publisher Publisher
}

// Coordinator - 프롬프트 → 생성/QA 재시도 → 조립 → 추적을 순차 실행
type Coordinator struct {
	deps         Dependencies
	targets      config.PageSet
	maxAttempts  int
	now          func() time.Time
	newRunID     func() string
	drainTimeout time.Duration
}

// Option - Coordinator 설정 옵션
type Option func(*Coordinator)

// WithTargetPages - 지정한 페이지만 생성 (빈 집합이면 전체)
func WithTargetPages(pages config.PageSet) Option {
	return func(c *Coordinator) { c.targets = pages }
}

// WithMaxAttempts - 아이템당 생성 시도 횟수
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithClock - Run 생성 시각에 쓰는 시계
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithRunIDs - run id 생성기 (기본 uuid)
func WithRunIDs(next func() string) Option {
	return func(c *Coordinator) { c.newRunID = next }
}

// WithDrainTimeout - Run 종료 시 progress observer 대기 한도
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.drainTimeout = d }
}

// New - Coordinator 생성
func New(deps Dependencies, opts ...Option) (*Coordinator, error) {
	switch {
	case deps.Prompts == nil:
		return nil, fmt.Errorf("coordinator: prompt service is required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("coordinator: image generator is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("coordinator: quality gate is required")
	case deps.Assembler == nil:
		return nil, fmt.Errorf("coordinator: assembler is required")
	}
	if deps.Tracker == nil {
		deps.Tracker = nopTracker{}
	}

	c := &Coordinator{
		deps:         deps,
		targets:      config.PageSet{},
		maxAttempts:  model.MaxAttempts,
		now:          time.Now,
		newRunID:     func() string { return uuid.New().String() },
		drainTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// runState - 실패 메시지에 현재 단계/진행률을 싣기 위한 상태
type runState struct {
	run      *model.Run
	notifier *dispatcher
	phase    string
	done     int
	total    int
}

func (s *runState) report(phase string, done, total int, status string) {
	s.phase, s.done, s.total = phase, done, total
	s.notifier.send(Progress{Phase: phase, Done: done, Total: total, Status: status})
}

// Run - 테마 하나를 끝까지 실행. 실패 시 FAILED 기록 후 에러를 그대로 반환
func (c *Coordinator) Run(ctx context.Context, theme string, observer Observer) (*model.JobResult, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, ErrInvalidTheme
	}

	notifier := newDispatcher(ctx, observer)
	defer notifier.close(c.drainTimeout)

	run := model.NewRun(c.newRunID(), theme, c.now())
	log.Printf("🚀 [Coordinator] Run %s started (theme: %s)", run.ID, theme)
	c.track("start", run.ID, c.deps.Tracker.RecordStart(ctx, run))
	if err := run.Advance(model.StatusInProgress); err != nil {
		log.Printf("⚠️  [Coordinator] %v", err)
	}

	st := &runState{run: run, notifier: notifier}
	result, err := c.execute(ctx, st)
	if err != nil {
		// 단일 에러 경계: FAILED 기록이 반환보다 먼저
		if ferr := run.Fail(err); ferr != nil {
			log.Printf("⚠️  [Coordinator] %v", ferr)
		}
		log.Printf("❌ [Coordinator] Run %s failed: %v", run.ID, err)
		c.track("failure", run.ID, c.deps.Tracker.RecordFailure(ctx, run.ID, err.Error()))
		st.report(st.phase, st.done, st.total, "failed: "+err.Error())
		return nil, err
	}

	if cerr := run.Complete(result.DocumentRef); cerr != nil {
		log.Printf("⚠️  [Coordinator] %v", cerr)
	}
	c.track("completion", run.ID, c.deps.Tracker.RecordCompletion(ctx, run.ID, result.DocumentRef))
	st.report(PhaseAssembly, len(result.Accepted), len(result.Accepted),
		fmt.Sprintf("done: %s", result.DocumentRef))

	log.Printf("✅ [Coordinator] Run %s completed: %d accepted, %d rejected, %d skipped",
		run.ID, len(result.Accepted), result.Rejected, result.Skipped)
	return result, nil
}

func (c *Coordinator) execute(ctx context.Context, st *runState) (*model.JobResult, error) {
	run := st.run

	st.report(PhasePrompts, 0, 0, "building prompt batch")
	batch, err := c.deps.Prompts.GenerateBatch(ctx, run.Theme)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPromptBatch, err)
	}
	items, skipped := c.selectItems(batch)
	log.Printf("📋 [Coordinator] Run %s: %d items in batch, %d selected, %d skipped",
		run.ID, len(batch), len(items), skipped)

	result := &model.JobResult{
		RunID:   run.ID,
		Theme:   run.Theme,
		Skipped: skipped,
	}

	total := len(items)
	for i := range items {
		item := &items[i]
		st.report(PhaseImages, i, total, "generating "+item.Label())

		passed, err := c.processItem(ctx, run, item)
		result.Attempts += item.Attempts
		if err != nil {
			return nil, err
		}

		if passed {
			result.Accepted = append(result.Accepted, model.Artifact{
				Key:        item.Key,
				Slot:       item.Slot,
				PageNumber: item.PageNumber,
				Path:       item.ArtifactPath,
			})
			c.track("progress", run.ID, c.deps.Tracker.RecordProgress(ctx, run.ID,
				fmt.Sprintf("accepted %s", item.Key), len(result.Accepted)))
			st.report(PhaseImages, i+1, total, "accepted "+item.Label())
			continue
		}

		result.Rejected++
		c.track("progress", run.ID, c.deps.Tracker.RecordProgress(ctx, run.ID,
			fmt.Sprintf("rejected %s after %d attempts: %s", item.Key, item.Attempts, item.Verdict.Reason),
			len(result.Accepted)))
	}

	if len(result.Accepted) == 0 {
		return nil, fmt.Errorf("%w (%d items rejected, %d skipped)", ErrNoArtifacts, result.Rejected, skipped)
	}

	st.report(PhaseAssembly, 0, len(result.Accepted), fmt.Sprintf("assembling %d pages", len(result.Accepted)))
	docPath, err := c.deps.Assembler.Assemble(ctx, run.Theme, result.Accepted)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssembly, err)
	}
	if info, statErr := os.Stat(docPath); statErr != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%w: document %q missing or empty", ErrAssembly, docPath)
	}

	result.Status = model.JobStatusSuccess
	result.DocumentPath = docPath
	result.DocumentRef = c.publish(ctx, run.ID, docPath, result.Accepted)
	return result, nil
}

// selectItems - 키/번호 보정 후 대상 페이지만 남김. Prompt Service가 이미 거른 배치에도 한 번 더 적용
func (c *Coordinator) selectItems(batch []model.WorkItem) ([]model.WorkItem, int) {
	assignKeys(batch)

	selected := make([]model.WorkItem, 0, len(batch))
	for _, item := range batch {
		if !c.targets.Contains(item.PageNumber) {
			continue
		}
		item.Ordinal = len(selected)
		item.State = model.ItemPending
		item.Attempts = 0
		item.Verdict = model.Verdict{}
		selected = append(selected, item)
	}
	return selected, len(batch) - len(selected)
}

// assignKeys - 빈 key는 슬롯 이름으로, 같은 슬롯이 여러 개면 페이지 번호를 붙임
func assignKeys(batch []model.WorkItem) {
	counts := map[model.SlotType]int{}
	for i := range batch {
		if batch[i].PageNumber <= 0 {
			batch[i].PageNumber = i + 1
		}
		counts[batch[i].Slot]++
	}

	used := map[string]bool{}
	for i := range batch {
		item := &batch[i]
		if item.Key == "" {
			item.Key = string(item.Slot)
			if counts[item.Slot] > 1 {
				item.Key = fmt.Sprintf("%s_%02d", item.Slot, item.PageNumber)
			}
		}
		for base, n := item.Key, 2; used[item.Key]; n++ {
			item.Key = fmt.Sprintf("%s_%d", base, n)
		}
		used[item.Key] = true
	}
}

func (c *Coordinator) publish(ctx context.Context, runID, docPath string, pages []model.Artifact) string {
	if c.deps.Publisher != nil {
		ref, err := c.deps.Publisher.Publish(ctx, runID, docPath, pages)
		if err == nil && ref != "" {
			return ref
		}
		log.Printf("⚠️  [Coordinator] Publish failed for run %s, using local path: %v", runID, err)
	}
	return fileURI(docPath)
}

func fileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// track - 추적 실패는 로그만 남김
func (c *Coordinator) track(event, runID string, err error) {
	if err != nil {
		log.Printf("⚠️  [Coordinator] Tracker %s for run %s failed: %v", event, runID, err)
	}
}

type nopTracker struct{}

func (nopTracker) RecordStart(context.Context, *model.Run) error { return nil }
func (nopTracker) RecordProgress(context.Context, string, string, int) error { return nil }
func (nopTracker) RecordCompletion(context.Context, string, string) error { return nil }
func (nopTracker) RecordFailure(context.Context, string, string) error { return nil }
