package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	jobmetrics "github.com/odyssey-erp/odyssey-sales/internal/jobs"
	"github.com/odyssey-erp/odyssey-sales/internal/ledger"
)

// DailyTotalsSource loads aggregated sales for a time window.
type DailyTotalsSource interface {
	DailyTotals(ctx context.Context, from, to time.Time) ([]ledger.DailyTotal, error)
}

// DigestLine is one account's entry in the daily digest.
type DigestLine struct {
	AccountID    int64
	Transactions int
	Revenue      string
}

// DailyDigestJob logs a per-account sales summary for one day.
type DailyDigestJob struct {
	Source  DailyTotalsSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDailyDigestJob wires dependencies for the digest handler.
func NewDailyDigestJob(source DailyTotalsSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *DailyDigestJob {
	return &DailyDigestJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskDailySalesDigest tasks.
func (j *DailyDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("daily digest: handler not configured")
	}
	var payload DailyDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	day, err := j.resolveDay(payload.Day)
	if err != nil {
		return fmt.Errorf("daily digest: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskDailySalesDigest)
	_, err = j.Run(ctx, day)
	return tracker.End(err)
}

// Run builds and logs the digest for the UTC day containing day.
func (j *DailyDigestJob) Run(ctx context.Context, day time.Time) ([]DigestLine, error) {
	if j.Source == nil {
		return nil, errors.New("daily digest: source not configured")
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	logger := j.logger().With(slog.String("day", from.Format(time.DateOnly)))

	totals, err := j.Source.DailyTotals(ctx, from, to)
	if err != nil {
		logger.Error("load daily totals", slog.Any("error", err))
		return nil, err
	}

	lines := make([]DigestLine, 0, len(totals))
	grand := decimal.Zero
	count := 0
	for _, total := range totals {
		line := DigestLine{AccountID: total.AccountID, Transactions: total.Transactions, Revenue: FormatRupiah(total.Revenue)}
		lines = append(lines, line)
		grand = grand.Add(total.Revenue)
		count += total.Transactions
		logger.Info("account sales",
			slog.Int64("account_id", line.AccountID),
			slog.Int("transactions", line.Transactions),
			slog.String("revenue", line.Revenue),
		)
	}
	logger.Info("daily sales digest",
		slog.Int("accounts", len(lines)),
		slog.Int("transactions", count),
		slog.String("revenue", FormatRupiah(grand)),
	)
	return lines, nil
}

func (j *DailyDigestJob) resolveDay(raw string) (time.Time, error) {
	if raw == "" {
		return j.now().AddDate(0, 0, -1), nil
	}
	return time.Parse(time.DateOnly, raw)
}

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount with Indonesian digit grouping, e.g. "Rp 1.250.000,00".
func FormatRupiah(amount decimal.Decimal) string {
	return rupiahPrinter.Sprintf("Rp %.2f", amount.InexactFloat64())
}

func (j *DailyDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDailySalesDigest))
	}
	return slog.Default().With(slog.String("job", TaskDailySalesDigest))
}

func (j *DailyDigestJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
