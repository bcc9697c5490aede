package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	audithandler "audittrail/internal/audit/handler"
	auditmetrics "audittrail/internal/audit/metrics"
	"audittrail/internal/audit/models"
	"audittrail/internal/audit/retention"
	"audittrail/internal/audit/service"
	pgstore "audittrail/internal/audit/store/postgres"
	"audittrail/internal/platform/config"
	"audittrail/internal/platform/httpserver"
	"audittrail/internal/platform/logger"
	"audittrail/internal/platform/metrics"
	"audittrail/internal/platform/postgres"
	httptransport "audittrail/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// The audit service and its store handle are built once and shared across
// concurrent requests; no per-request construction happens on this path.
func main() {
	// .env is a local-development convenience; absent in containers.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slogFatal("invalid configuration", err)
	}
	log := logger.New(cfg.LogLevel)

	if err := postgres.Migrate(cfg.DB); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DB)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	platformMetrics := metrics.New()
	auditSvc := service.New(pgstore.New(db),
		service.WithLogger(log),
		service.WithMetrics(auditmetrics.New()),
	)

	handler := audithandler.New(auditSvc, log, cfg.AdminToken)
	router := httptransport.NewRouter(handler, auditSvc, log, platformMetrics, cfg.ReqTimeout)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting audittrail", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Retention.Schedule != "" {
		sweeper := retention.NewSweeper(
			auditSvc.Retention(),
			cfg.Retention.Schedule,
			cfg.Retention.Days,
			log,
			retention.WithErrorHook(func(ctx context.Context, sweepErr error) {
				// The ledger records its own failures.
				_, _ = auditSvc.LogErrorEvent(ctx, models.ServiceAudit, sweepErr, map[string]any{
					"component": "retention_sweeper",
				})
			}),
		)
		group.Go(func() error {
			err := sweeper.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if _, err := auditSvc.LogSystemEvent(ctx, models.ServiceAudit, "audit service started", map[string]any{
		"addr": cfg.Addr,
	}); err != nil {
		log.Warn("failed to record startup event", "error", err)
	}

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// slogFatal reports a startup failure before the structured logger exists.
func slogFatal(msg string, err error) {
	logger.New("INFO").Error(msg, "error", err)
	os.Exit(1)
}
