package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-sales/internal/jobs"
	"github.com/odyssey-erp/odyssey-sales/internal/ledger"
)

// LowStockJob reports products that fell below the configured stock threshold.
type LowStockJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockJob wires dependencies for the low stock handler.
func NewLowStockJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockAlert tasks.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock: handler not configured")
	}
	var alert ledger.LowStockAlert
	if err := json.Unmarshal(t.Payload(), &alert); err != nil || alert.ProductID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskLowStockAlert)

	j.logger().Warn("product stock low",
		slog.Int64("product_id", alert.ProductID),
		slog.String("product_code", alert.ProductCode),
		slog.String("name", alert.Name),
		slog.Int64("account_id", alert.AccountID),
		slog.Int("remaining", alert.Remaining),
		slog.Int("threshold", alert.Threshold),
		slog.String("invoice_no", alert.InvoiceNo),
	)
	j.Metrics.AddLowStockAlerts(alert.AccountID, 1)
	return tracker.End(nil)
}

func (j *LowStockJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockAlert))
	}
	return slog.Default().With(slog.String("job", TaskLowStockAlert))
}
