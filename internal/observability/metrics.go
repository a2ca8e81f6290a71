package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/odyssey-erp/odyssey-sales/internal/jobs"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesCreated    prometheus.Counter
	salesLines      prometheus.Counter
	salesRevenue    prometheus.Counter
	salesRejected   *prometheus.CounterVec
	salesDeleted    prometheus.Counter
	jobs            *jobmetrics.Metrics
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_sales_transactions_created_total",
		Help: "Jumlah transaksi penjualan yang berhasil dicatat.",
	})
	lines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_sales_transaction_lines_total",
		Help: "Jumlah baris produk pada transaksi yang berhasil.",
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_sales_revenue_total",
		Help: "Akumulasi nilai transaksi penjualan.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_sales_transactions_rejected_total",
		Help: "Jumlah transaksi yang ditolak berdasarkan alasan.",
	}, []string{"reason"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_sales_transactions_deleted_total",
		Help: "Jumlah transaksi yang dihapus (soft delete).",
	})
	registry.MustRegister(requests, duration, created, lines, revenue, rejected, deleted)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesCreated:    created,
		salesLines:      lines,
		salesRevenue:    revenue,
		salesRejected:   rejected,
		salesDeleted:    deleted,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Jobs mengembalikan metrik job latar belakang yang terdaftar pada registry yang sama.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// TransactionCreated mencatat transaksi yang berhasil beserta jumlah baris dan nilainya.
func (m *Metrics) TransactionCreated(lines int, total float64) {
	if m == nil {
		return
	}
	m.salesCreated.Inc()
	m.salesLines.Add(float64(lines))
	if total > 0 {
		m.salesRevenue.Add(total)
	}
}

// TransactionRejected mencatat transaksi yang ditolak.
func (m *Metrics) TransactionRejected(reason string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(reason).Inc()
}

// TransactionDeleted mencatat soft delete transaksi.
func (m *Metrics) TransactionDeleted() {
	if m == nil {
		return
	}
	m.salesDeleted.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
