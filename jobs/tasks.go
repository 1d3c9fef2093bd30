package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan flags batches whose remaining quantity fell under the threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskExpiryScan flags batches that expire within the warning window.
	TaskExpiryScan = "inventory:expiry_scan"
)

// KnownTasks lists the task types this worker handles.
var KnownTasks = []string{TaskLowStockScan, TaskExpiryScan}

// ScanPayload carries scheduling metadata. WithinDays only applies to expiry scans.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	WithinDays   int       `json:"within_days,omitempty"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewExpiryScanTask constructs an Asynq task for the expiry scan. A zero window
// uses the configured default.
func NewExpiryScanTask(at time.Time, withinDays int) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at, WithinDays: withinDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiryScan, body, asynq.Queue(QueueDefault)), nil
}

// NewTask builds the default task for a known type.
func NewTask(name string, at time.Time) (*asynq.Task, error) {
	switch name {
	case TaskLowStockScan:
		return NewLowStockScanTask(at)
	case TaskExpiryScan:
		return NewExpiryScanTask(at, 0)
	default:
		return nil, ErrUnknownTask
	}
}
