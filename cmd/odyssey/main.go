package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-sales/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-sales/internal/app"
	"github.com/odyssey-erp/odyssey-sales/internal/auth"
	"github.com/odyssey-erp/odyssey-sales/internal/catalog"
	"github.com/odyssey-erp/odyssey-sales/internal/ledger"
	"github.com/odyssey-erp/odyssey-sales/internal/observability"
	"github.com/odyssey-erp/odyssey-sales/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-sales/internal/platform/db"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
	"github.com/odyssey-erp/odyssey-sales/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("server exited", slog.Any("error", err))
			os.Exit(1)
		}
	case "migrate":
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args))
	default:
		fmt.Fprintf(os.Stderr, "usage: odyssey [serve|migrate|jobs [-json] [-day YYYY-MM-DD] (trigger <task>|stats)]\n")
		os.Exit(2)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	day := fs.String("day", "", "day to summarise for sales:daily_digest (YYYY-MM-DD)")
	asJSON := fs.Bool("json", false, "print JSON output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetention)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer jobsCLI.Close()
	return jobsCLI.JobsCommand(ctx, cli.JobsOptions{
		Args:       fs.Args(),
		Day:        *day,
		JSONOutput: *asJSON,
	})
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			return err
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Summary reads fall back to PostgreSQL while Redis is down.
		logger.Warn("redis unavailable, summary cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, cfg.BcryptCost)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), auditLogger, logger)

	deps := ledger.Deps{
		Audit:   auditLogger,
		Alerts:  jobClient,
		Metrics: metrics,
		Logger:  logger,
	}
	if redisClient != nil {
		deps.Cache = ledger.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)
	}
	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), deps, ledger.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    auth.NewHandler(logger, authService),
		AuthMiddleware: auth.Middleware(tokens, logger),
		CatalogHandler: catalog.NewHandler(logger, catalogService),
		LedgerHandler:  ledger.NewHandler(logger, ledgerService),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
