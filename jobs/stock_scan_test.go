package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchflow/batchflow/internal/inventory/batches"
	jobmetrics "github.com/batchflow/batchflow/internal/jobs"
)

type stubStock struct {
	low      []batches.Batch
	expiring []batches.Expiring
	days     int
	err      error
}

func (s *stubStock) LowStock(context.Context) ([]batches.Batch, error) {
	return s.low, s.err
}

func (s *stubStock) Expiring(_ context.Context, days int) ([]batches.Expiring, error) {
	s.days = days
	return s.expiring, s.err
}

func (s *stubStock) LowStockThreshold() int64 { return 10 }

func newStore(t *testing.T) (*SummaryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryStore(client, 0), mr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counterValue(t *testing.T, registry *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func sampleBatch(id int64, qty int64) batches.Batch {
	return batches.Batch{
		ID:          id,
		BatchNumber: "1-2024-001",
		ProductName: "Mango Pickle",
		Qty:         qty,
		ExpDate:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLowStockScanStoresSummary(t *testing.T) {
	store, mr := newStore(t)
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	stock := &stubStock{low: []batches.Batch{sampleBatch(1, 3), sampleBatch(2, 0)}}
	job := NewStockScanJob(stock, store, quietLogger(), metrics)

	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.HandleLowStock(context.Background(), task))

	assert.True(t, mr.Exists("batchflow:jobs:last:inventory:low_stock_scan"))
	summary, err := store.Last(context.Background(), TaskLowStockScan)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Flagged)
	require.Len(t, summary.Batches, 2)
	assert.Equal(t, "2024-04-01", summary.Batches[0].ExpDate)
	assert.Empty(t, summary.Error)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2.0, counterValue(t, registry, "batchflow_job_flagged_total", TaskLowStockScan))
}

func TestExpiryScanPassesWindow(t *testing.T) {
	store, _ := newStore(t)
	stock := &stubStock{expiring: []batches.Expiring{{Batch: sampleBatch(3, 40), DaysLeft: -2}}}
	job := NewStockScanJob(stock, store, quietLogger(), nil)

	task, err := NewExpiryScanTask(time.Now(), 7)
	require.NoError(t, err)
	require.NoError(t, job.HandleExpiry(context.Background(), task))
	assert.Equal(t, 7, stock.days)

	summary, err := store.Last(context.Background(), TaskExpiryScan)
	require.NoError(t, err)
	require.Len(t, summary.Batches, 1)
	require.NotNil(t, summary.Batches[0].DaysLeft)
	assert.Equal(t, -2, *summary.Batches[0].DaysLeft)
}

func TestScanFailureIsRecorded(t *testing.T) {
	store, _ := newStore(t)
	job := NewStockScanJob(&stubStock{err: errors.New("db down")}, store, quietLogger(), nil)

	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)
	err = job.HandleLowStock(context.Background(), task)
	require.Error(t, err)

	summary, err := store.Last(context.Background(), TaskLowStockScan)
	require.NoError(t, err)
	assert.Contains(t, summary.Error, "db down")
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	store, _ := newStore(t)
	registry := prometheus.NewRegistry()
	var logs bytes.Buffer
	stock := &stubStock{}
	job := NewStockScanJob(stock, store, slog.New(slog.NewTextHandler(&logs, nil)), jobmetrics.NewMetrics(registry))

	err := job.HandleExpiry(context.Background(), asynq.NewTask(TaskExpiryScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, logs.String(), "malformed scan payload")
	assert.Contains(t, logs.String(), "task=inventory:expiry_scan")
	assert.Equal(t, 1.0, counterValue(t, registry, "batchflow_jobs_failures_total", TaskExpiryScan))
	assert.Zero(t, stock.days)

	_, err = store.Last(context.Background(), TaskExpiryScan)
	assert.ErrorIs(t, err, ErrNoSummary)
}

func TestLastEndpoint(t *testing.T) {
	store, _ := newStore(t)
	h := NewHandler(nil, store, quietLogger())
	r := chi.NewRouter()
	h.MountHealth(r)
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/last/"+TaskExpiryScan, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/last/mail:send", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown task")

	require.NoError(t, store.Save(context.Background(), Summary{Task: TaskExpiryScan, Flagged: 4}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/last/"+TaskExpiryScan, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"flagged":4`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue":"default"`)
}

type failingInspector struct{}

func (failingInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return nil, errors.New("redis unreachable")
}

func TestHealthReportsUnavailable(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(failingInspector{}, nil, quietLogger()).MountHealth(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewTaskRejectsUnknown(t *testing.T) {
	_, err := NewTask("mail:send", time.Now())
	assert.ErrorIs(t, err, ErrUnknownTask)
	task, err := NewTask(TaskLowStockScan, time.Now())
	require.NoError(t, err)
	assert.Equal(t, TaskLowStockScan, task.Type())
}
