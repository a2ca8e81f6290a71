package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-sales/internal/auth"
	"github.com/odyssey-erp/odyssey-sales/internal/catalog"
	"github.com/odyssey-erp/odyssey-sales/internal/ledger"
	"github.com/odyssey-erp/odyssey-sales/internal/observability"
	"github.com/odyssey-erp/odyssey-sales/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-sales/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware func(http.Handler) http.Handler
	CatalogHandler *catalog.Handler
	LedgerHandler  *ledger.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}

	r.Group(func(r chi.Router) {
		if params.AuthMiddleware != nil {
			r.Use(params.AuthMiddleware)
		}
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
	})

	return r
}

// NewWorkerRouter exposes the worker's registry. The worker records job
// metrics in its own process, so it is scraped separately from the API.
func NewWorkerRouter(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}
