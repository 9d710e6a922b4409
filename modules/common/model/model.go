package model

import (
	"fmt"
	"time"
)

// MaxAttempts - 아이템당 최대 생성 시도 횟수 (최초 1회 + 재시도 2회)
const MaxAttempts = 3

// RunStatus - Run 상태 (단방향 전이)
type RunStatus string

const (
	StatusPending    RunStatus = "PENDING"
	StatusInProgress RunStatus = "IN_PROGRESS"
	StatusCompleted  RunStatus = "COMPLETED"
	StatusFailed     RunStatus = "FAILED"
)

// JobStatusSuccess - JobResult.Status 값
const JobStatusSuccess = "SUCCESS"

func (s RunStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// Terminal - COMPLETED 또는 FAILED
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run - 테마 하나에 대한 end-to-end 실행
type Run struct {
	ID          string    `json:"run_id"`
	Theme       string    `json:"theme"`
	Status      RunStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	DocumentRef string    `json:"document_ref,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewRun - PENDING 상태의 Run 생성
func NewRun(id, theme string, now time.Time) *Run {
	return &Run{ID: id, Theme: theme, Status: StatusPending, CreatedAt: now}
}

// Advance - 상태 전이. 역행이나 종료 상태 이후 변경은 에러
func (r *Run) Advance(to RunStatus) error {
	if r.Status.Terminal() {
		return fmt.Errorf("run %s already %s", r.ID, r.Status)
	}
	if to.rank() < 0 || to.rank() <= r.Status.rank() {
		return fmt.Errorf("run %s cannot move from %s to %s", r.ID, r.Status, to)
	}
	r.Status = to
	return nil
}

// Complete - COMPLETED 전이 + 문서 참조 기록
func (r *Run) Complete(documentRef string) error {
	if err := r.Advance(StatusCompleted); err != nil {
		return err
	}
	r.DocumentRef = documentRef
	return nil
}

// Fail - FAILED 전이 + 에러 기록
func (r *Run) Fail(cause error) error {
	if err := r.Advance(StatusFailed); err != nil {
		return err
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	return nil
}

// SlotType - 페이지 역할
type SlotType string

const (
	SlotCover       SlotType = "cover"
	SlotMission     SlotType = "mission"
	SlotParents     SlotType = "parents"
	SlotIntro       SlotType = "intro"
	SlotKnolling    SlotType = "knolling"
	SlotAction      SlotType = "action"
	SlotCertificate SlotType = "certificate"
	SlotPage        SlotType = "page"
)

// FullColor - 컬러로 출력되는 슬롯 (나머지는 흑백 라인아트)
func (s SlotType) FullColor() bool {
	return s == SlotCover
}

// ItemState - Work Item 상태
type ItemState string

const (
	ItemPending    ItemState = "PENDING"
	ItemGenerating ItemState = "GENERATING"
	ItemAwaitingQA ItemState = "AWAITING_QA"
	ItemFailedQA   ItemState = "FAILED_QA"
	ItemPassed     ItemState = "PASSED"
	ItemRejected   ItemState = "REJECTED"
)

// Verdict - QA 판정
type Verdict struct {
	Checked bool   `json:"checked"`
	Pass    bool   `json:"pass"`
	Reason  string `json:"reason,omitempty"`
}

// PassVerdict / FailVerdict - 판정 생성 헬퍼
func PassVerdict() Verdict { return Verdict{Checked: true, Pass: true} }

func FailVerdict(format string, args ...interface{}) Verdict {
	return Verdict{Checked: true, Pass: false, Reason: fmt.Sprintf(format, args...)}
}

func (v Verdict) String() string {
	switch {
	case !v.Checked:
		return "UNSET"
	case v.Pass:
		return "PASS"
	case v.Reason != "":
		return "FAIL: " + v.Reason
	}
	return "FAIL"
}

// WorkItem - Run 안에서 생성할 페이지 하나
type WorkItem struct {
	Key          string    `json:"key"`
	Slot         SlotType  `json:"slot"`
	PageNumber   int       `json:"page_number"`
	Ordinal      int       `json:"ordinal"`
	Prompt       string    `json:"prompt"`
	Wireframe    string    `json:"wireframe,omitempty"`
	References   []string  `json:"references,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Verdict      Verdict   `json:"verdict"`
	Attempts     int       `json:"attempts"`
	State        ItemState `json:"state"`
}

// Label - 파일명/로그에 쓰는 라벨
func (w *WorkItem) Label() string {
	if w.Slot == SlotCover {
		return "Cover"
	}
	if w.PageNumber > 0 {
		return fmt.Sprintf("Page%02d", w.PageNumber)
	}
	return w.Key
}

// Artifact - QA 통과한 결과물
type Artifact struct {
	Key        string   `json:"key"`
	Slot       SlotType `json:"slot"`
	PageNumber int      `json:"page_number"`
	Path       string   `json:"path"`
}

// JobResult - 완료된 Run의 불변 스냅샷
type JobResult struct {
	Status       string     `json:"status"`
	RunID        string     `json:"run_id"`
	Theme        string     `json:"theme"`
	DocumentPath string     `json:"document_path"`
	DocumentRef  string     `json:"document_ref"`
	Accepted     []Artifact `json:"accepted"`
	Rejected     int        `json:"rejected"`
	Skipped      int        `json:"skipped"`
	Attempts     int        `json:"attempts"`
}

// AcceptedPaths - slot key → artifact path
func (r *JobResult) AcceptedPaths() map[string]string {
	out := make(map[string]string, len(r.Accepted))
	for _, a := range r.Accepted {
		out[a.Key] = a.Path
	}
	return out
}

// AcceptedKeys - 순서가 유지된 key 목록
func (r *JobResult) AcceptedKeys() []string {
	keys := make([]string, 0, len(r.Accepted))
	for _, a := range r.Accepted {
		keys = append(keys, a.Key)
	}
	return keys
}
