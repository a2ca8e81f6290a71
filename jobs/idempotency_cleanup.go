package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-sales/internal/jobs"
)

// DefaultIdempotencyRetention is how long processed keys are remembered.
const DefaultIdempotencyRetention = 72 * time.Hour

// KeyPurger removes idempotency keys older than a cutoff.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob drops stale idempotency keys.
type IdempotencyCleanupJob struct {
	Store   KeyPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires dependencies for the cleanup handler.
func NewIdempotencyCleanupJob(store KeyPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}

	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	removed, err := j.Store.Cleanup(ctx, retention)
	if err != nil {
		j.logger().Error("purge idempotency keys", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddPurgedKeys(removed)
	j.logger().Info("purged idempotency keys", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return tracker.End(nil)
}

func (j *IdempotencyCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIdempotencyCleanup))
	}
	return slog.Default().With(slog.String("job", TaskIdempotencyCleanup))
}
