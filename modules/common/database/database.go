package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/supabase-community/supabase-go"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/model"
)

const (
	RunsTable   = "knolling_runs"
	EventsTable = "knolling_run_events"
)

// RunRow - knolling_runs 레코드
type RunRow struct {
	RunID         string  `json:"run_id"`
	Theme         string  `json:"theme"`
	RunStatus     string  `json:"run_status"`
	AcceptedCount int     `json:"accepted_count"`
	DocumentRef   *string `json:"document_ref"`
	ErrorText     *string `json:"error_text"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     *string `json:"updated_at"`
}

// EventRow - knolling_run_events 레코드
type EventRow struct {
	EventID   int64  `json:"event_id,omitempty"`
	RunID     string `json:"run_id"`
	EventType string `json:"event_type"`
	Message   string `json:"message"`
	Count     int    `json:"accepted_count"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.HasSupabase() {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Client{supabase: supabaseClient}, nil
}

// InsertRun - Run 시작 레코드 생성
func (c *Client) InsertRun(ctx context.Context, run *model.Run) error {
	insertData := map[string]interface{}{
		"run_id":         run.ID,
		"theme":          run.Theme,
		"run_status":     string(run.Status),
		"accepted_count": 0,
		"created_at":     run.CreatedAt.UTC().Format(time.RFC3339),
	}

	_, _, err := c.supabase.From(RunsTable).
		Insert(insertData, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	log.Printf("✅ [Database] Run %s inserted (status: %s)", run.ID, run.Status)
	return nil
}

// UpdateRun - Run 레코드 갱신 (updated_at은 항상 now())
func (c *Client) UpdateRun(ctx context.Context, runID string, fields map[string]interface{}) error {
	updateData := map[string]interface{}{"updated_at": "now()"}
	for k, v := range fields {
		updateData[k] = v
	}

	_, _, err := c.supabase.From(RunsTable).
		Update(updateData, "", "").
		Eq("run_id", runID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// InsertEvent - Run 이벤트 추가
func (c *Client) InsertEvent(ctx context.Context, event EventRow) error {
	insertData := map[string]interface{}{
		"run_id":         event.RunID,
		"event_type":     event.EventType,
		"message":        event.Message,
		"accepted_count": event.Count,
	}

	_, _, err := c.supabase.From(EventsTable).
		Insert(insertData, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert run event: %w", err)
	}
	return nil
}

// FetchRun - run_id로 Run 조회
func (c *Client) FetchRun(ctx context.Context, runID string) (*RunRow, error) {
	var runs []RunRow

	data, _, err := c.supabase.From(RunsTable).
		Select("*", "exact", false).
		Eq("run_id", runID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query Supabase: %w", err)
	}

	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return &runs[0], nil
}

// FetchEvents - Run 이벤트 목록 (기록 순)
func (c *Client) FetchEvents(ctx context.Context, runID string) ([]EventRow, error) {
	var events []EventRow

	data, _, err := c.supabase.From(EventsTable).
		Select("*", "exact", false).
		Eq("run_id", runID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query run events: %w", err)
	}

	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse run events: %w", err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].EventID < events[j].EventID })
	return events, nil
}
