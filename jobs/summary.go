package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/batchflow/batchflow/internal/shared"
)

const summaryKeyPrefix = "batchflow:jobs:last:"

var (
	ErrUnknownTask = shared.NewError(shared.ErrNotFound, "unknown task")
	ErrNoSummary   = shared.NewError(shared.ErrNotFound, "task has not run yet")
)

// FlaggedBatch is one batch a scan reported.
type FlaggedBatch struct {
	BatchID     int64  `json:"batch_id"`
	BatchNumber string `json:"batch_number"`
	ProductName string `json:"product_name"`
	Qty         int64  `json:"qty"`
	ExpDate     string `json:"exp_date"`
	DaysLeft    *int   `json:"days_left,omitempty"`
}

// Summary records the outcome of the latest run of a task.
type Summary struct {
	RunID      string         `json:"run_id"`
	Task       string         `json:"task"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Flagged    int            `json:"flagged"`
	Batches    []FlaggedBatch `json:"batches"`
	Error      string         `json:"error,omitempty"`
}

// SummaryStore keeps the latest run summary per task in redis.
type SummaryStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSummaryStore wraps a redis client. Zero ttl keeps summaries until overwritten.
func NewSummaryStore(client redis.UniversalClient, ttl time.Duration) *SummaryStore {
	return &SummaryStore{client: client, ttl: ttl}
}

func summaryKey(task string) string { return summaryKeyPrefix + task }

// Save overwrites the latest summary of s.Task.
func (s *SummaryStore) Save(ctx context.Context, summary Summary) error {
	if s == nil || s.client == nil {
		return nil
	}
	body, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, summaryKey(summary.Task), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job summary: %w", err)
	}
	return nil
}

// Last returns the latest summary of task.
func (s *SummaryStore) Last(ctx context.Context, task string) (*Summary, error) {
	if !isKnownTask(task) {
		return nil, ErrUnknownTask
	}
	if s == nil || s.client == nil {
		return nil, ErrNoSummary
	}
	body, err := s.client.Get(ctx, summaryKey(task)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSummary
	}
	if err != nil {
		return nil, err
	}
	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decode job summary: %w", err)
	}
	return &summary, nil
}

func isKnownTask(task string) bool {
	for _, known := range KnownTasks {
		if known == task {
			return true
		}
	}
	return false
}
