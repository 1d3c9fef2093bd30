package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/batchflow/batchflow/internal/inventory/batches"
	jobmetrics "github.com/batchflow/batchflow/internal/jobs"
)

// StockReader is the slice of the batch service the scans need.
type StockReader interface {
	LowStock(ctx context.Context) ([]batches.Batch, error)
	Expiring(ctx context.Context, days int) ([]batches.Expiring, error)
	LowStockThreshold() int64
}

// StockScanJob runs the low-stock and expiry scans.
type StockScanJob struct {
	Stock   StockReader
	Store   *SummaryStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewStockScanJob initialises the scan handlers.
func NewStockScanJob(stock StockReader, store *SummaryStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockScanJob {
	return &StockScanJob{
		Stock:   stock,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleLowStock processes TaskLowStockScan.
func (j *StockScanJob) HandleLowStock(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	return j.run(ctx, TaskLowStockScan, func(ctx context.Context, _ ScanPayload) ([]FlaggedBatch, error) {
		found, err := j.Stock.LowStock(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]FlaggedBatch, 0, len(found))
		for _, b := range found {
			out = append(out, flagged(b, nil))
		}
		return out, nil
	}, t.Payload(), slog.Int64("threshold", j.Stock.LowStockThreshold()))
}

// HandleExpiry processes TaskExpiryScan.
func (j *StockScanJob) HandleExpiry(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("expiry scan: handler not configured")
	}
	return j.run(ctx, TaskExpiryScan, func(ctx context.Context, payload ScanPayload) ([]FlaggedBatch, error) {
		found, err := j.Stock.Expiring(ctx, payload.WithinDays)
		if err != nil {
			return nil, err
		}
		out := make([]FlaggedBatch, 0, len(found))
		for _, e := range found {
			days := e.DaysLeft
			out = append(out, flagged(e.Batch, &days))
		}
		return out, nil
	}, t.Payload())
}

type scanFunc func(context.Context, ScanPayload) ([]FlaggedBatch, error)

func (j *StockScanJob) run(ctx context.Context, task string, scan scanFunc, raw []byte, attrs ...any) error {
	tracker := j.Metrics.Track(task)
	logger := j.logger().With(slog.String("task", task))

	var payload ScanPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			logger.Warn("malformed scan payload", slog.Any("error", err), slog.Int("bytes", len(raw)))
			return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
		}
	}

	logger.Info("starting stock scan", attrs...)

	summary := Summary{RunID: uuid.NewString(), Task: task, StartedAt: j.now()}
	found, err := scan(ctx, payload)
	summary.FinishedAt = j.now()
	if err != nil {
		summary.Error = err.Error()
		logger.Error("stock scan failed", slog.Any("error", err))
	} else {
		summary.Flagged = len(found)
		summary.Batches = found
		for _, b := range found {
			logger.Warn("batch flagged",
				slog.Int64("batch_id", b.BatchID),
				slog.String("batch_number", b.BatchNumber),
				slog.Int64("qty", b.Qty),
				slog.String("exp_date", b.ExpDate))
		}
		j.Metrics.AddFlagged(task, len(found))
		logger.Info("stock scan finished", slog.Int("flagged", len(found)))
	}

	if storeErr := j.Store.Save(ctx, summary); storeErr != nil {
		logger.Warn("store scan summary", slog.Any("error", storeErr))
	}
	return tracker.End(err)
}

func flagged(b batches.Batch, daysLeft *int) FlaggedBatch {
	return FlaggedBatch{
		BatchID:     b.ID,
		BatchNumber: b.BatchNumber,
		ProductName: b.ProductName,
		Qty:         b.Qty,
		ExpDate:     b.ExpDate.Format(batches.DateLayout),
		DaysLeft:    daysLeft,
	}
}

func (j *StockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *StockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
