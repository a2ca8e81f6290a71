package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-sales/internal/jobs"
	"github.com/odyssey-erp/odyssey-sales/internal/ledger"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestLowStockJobHandle(t *testing.T) {
	logger, buf := bufferLogger()
	registry := prometheus.NewRegistry()
	job := NewLowStockJob(logger, jobmetrics.NewMetrics(registry))

	task, err := NewLowStockAlertTask(ledger.LowStockAlert{ProductID: 3, ProductCode: "P3", Name: "Pen", AccountID: 9, Remaining: 2, Threshold: 5, InvoiceNo: "INV-1"})
	require.NoError(t, err)
	assert.Equal(t, TaskLowStockAlert, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	out := buf.String()
	assert.Contains(t, out, "product stock low")
	assert.Contains(t, out, "product_code=P3")
	assert.Contains(t, out, "remaining=2")

	count, err := testutil.GatherAndCount(registry, "odyssey_low_stock_alerts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLowStockJobRejectsBadPayload(t *testing.T) {
	job := NewLowStockJob(nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskLowStockAlert, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = job.Handle(context.Background(), asynq.NewTask(TaskLowStockAlert, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type totalsStub struct {
	from, to time.Time
	totals   []ledger.DailyTotal
	err      error
}

func (s *totalsStub) DailyTotals(ctx context.Context, from, to time.Time) ([]ledger.DailyTotal, error) {
	s.from, s.to = from, to
	return s.totals, s.err
}

func TestDailyDigestDefaultsToYesterday(t *testing.T) {
	source := &totalsStub{totals: []ledger.DailyTotal{
		{AccountID: 1, Transactions: 2, Revenue: decimal.RequireFromString("1250000")},
		{AccountID: 2, Transactions: 1, Revenue: decimal.RequireFromString("300")},
	}}
	logger, buf := bufferLogger()
	job := NewDailyDigestJob(source, logger, nil)
	job.clock = func() time.Time { return time.Date(2024, 10, 27, 0, 5, 0, 0, time.UTC) }

	task, err := NewDailyDigestTask(time.Time{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, time.Date(2024, 10, 26, 0, 0, 0, 0, time.UTC), source.from)
	assert.Equal(t, time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC), source.to)
	assert.Contains(t, buf.String(), "daily sales digest")
	assert.Contains(t, buf.String(), "transactions=3")
}

func TestDailyDigestRunLines(t *testing.T) {
	source := &totalsStub{totals: []ledger.DailyTotal{{AccountID: 1, Transactions: 2, Revenue: decimal.RequireFromString("1250000")}}}
	job := NewDailyDigestJob(source, nil, nil)

	lines, err := job.Run(context.Background(), time.Date(2024, 10, 26, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].AccountID)
	assert.True(t, strings.HasPrefix(lines[0].Revenue, "Rp "))
	assert.Contains(t, lines[0].Revenue, "1.250.000")
}

func TestDailyDigestExplicitDayAndErrors(t *testing.T) {
	boom := errors.New("db down")
	source := &totalsStub{err: boom}
	job := NewDailyDigestJob(source, nil, nil)

	task, err := NewDailyDigestTask(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	var payload DailyDigestPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "2024-01-02", payload.Day)

	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), source.from)

	bad := asynq.NewTask(TaskDailySalesDigest, []byte(`{"day":"02/01/2024"}`))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

type purgerStub struct {
	olderThan time.Duration
	removed   int64
}

func (p *purgerStub) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	p.olderThan = olderThan
	return p.removed, nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	store := &purgerStub{removed: 4}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewIdempotencyCleanupJob(store, nil, metrics)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, store.olderThan)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte(`{}`))))
	assert.Equal(t, DefaultIdempotencyRetention, store.olderThan)

	families, err := registry.Gather()
	require.NoError(t, err)
	var purged float64
	for _, mf := range families {
		if mf.GetName() == "odyssey_idempotency_keys_purged_total" {
			purged = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(8), purged)
}

func TestDefaultCron(t *testing.T) {
	entries, err := DefaultCron(DefaultIdempotencyRetention)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, TaskDailySalesDigest, entries[0].Task.Type())
	assert.Equal(t, TaskIdempotencyCleanup, entries[1].Task.Type())
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue":"default"`)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestClientNotConfigured(t *testing.T) {
	var c *Client
	assert.Error(t, c.EnqueueLowStock(context.Background(), ledger.LowStockAlert{ProductID: 1}))
	assert.NoError(t, c.Close())
}
