package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-sales/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert notifies that a sale left a product below the stock threshold.
	TaskLowStockAlert = "inventory:low_stock"
	// TaskDailySalesDigest summarises the previous day's sales per account.
	TaskDailySalesDigest = "sales:daily_digest"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// DailyDigestPayload selects the day to summarise. An empty Day means yesterday (UTC).
type DailyDigestPayload struct {
	Day string `json:"day,omitempty"`
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewLowStockAlertTask constructs an Asynq task for a low stock alert.
func NewLowStockAlertTask(alert ledger.LowStockAlert) (*asynq.Task, error) {
	body, err := json.Marshal(alert)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewDailyDigestTask constructs the digest task. A zero day lets the handler pick yesterday.
func NewDailyDigestTask(day time.Time) (*asynq.Task, error) {
	payload := DailyDigestPayload{}
	if !day.IsZero() {
		payload.Day = day.Format(time.DateOnly)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailySalesDigest, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the retention sweep task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
