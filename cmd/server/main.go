// Package main is the entrypoint for the ScoutOps API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scoutops/scoutops/internal/api"
	"github.com/scoutops/scoutops/internal/api/handler"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/cache"
	"github.com/scoutops/scoutops/internal/catalog"
	"github.com/scoutops/scoutops/internal/config"
	"github.com/scoutops/scoutops/internal/jobs"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/packet"
	"github.com/scoutops/scoutops/internal/review"
	"github.com/scoutops/scoutops/internal/settlement"
	"github.com/scoutops/scoutops/internal/storage"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/internal/submission"
	"github.com/scoutops/scoutops/pkg/observability"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache and notifier
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	notifier, err := notify.NewRedisNotifier(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	defer notifier.Close()

	// 5. Create packet storage
	blobStore, err := storage.NewFileStore(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("create packet storage: %w", err)
	}

	// 6. Create store and services
	pgStore := store.NewPostgresStore(pool)

	catalogSvc := catalog.NewCatalog(pgStore)
	posterSvc := jobs.NewPoster(pgStore, redisCache, notifier)
	recorderSvc := submission.NewRecorder(pgStore, notifier)
	issuerSvc := settlement.NewIssuer(pgStore, notifier)
	engineSvc := review.NewEngine(pgStore, issuerSvc, notifier)
	compilerSvc := packet.NewCompiler(pgStore, blobStore)

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		CreateTemplate:  handler.NewCreateTemplateHandler(catalogSvc),
		UpdateTemplate:  handler.NewUpdateTemplateHandler(catalogSvc),
		ArchiveTemplate: handler.NewArchiveTemplateHandler(catalogSvc),
		GetTemplate:     handler.NewGetTemplateHandler(catalogSvc),
		ListTemplates:   handler.NewListTemplatesHandler(catalogSvc),

		CreateJob:  handler.NewCreateJobHandler(posterSvc),
		GetJob:     handler.NewGetJobHandler(posterSvc),
		ListJobs:   handler.NewListJobsHandler(posterSvc),
		PublishJob: handler.NewPublishJobHandler(posterSvc),
		CancelJob:  handler.NewCancelJobHandler(posterSvc),
		AcceptJob:  handler.NewAcceptJobHandler(posterSvc),
		StartJob:   handler.NewStartJobHandler(posterSvc),

		Submit:        handler.NewSubmitHandler(recorderSvc),
		GetSubmission: handler.NewGetSubmissionHandler(recorderSvc),
		Review:        handler.NewReviewHandler(engineSvc),
		CompilePacket: handler.NewCompilePacketHandler(compilerSvc),

		CompletePayout: handler.NewCompletePayoutHandler(issuerSvc),
		GetJobPayout:   handler.NewGetJobPayoutHandler(issuerSvc),
		RedeemVoucher:  handler.NewRedeemVoucherHandler(issuerSvc),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
		ExpireJobs:       handler.NewExpireJobsHandler(posterSvc),
		ExpireVouchers:   handler.NewExpireVouchersHandler(issuerSvc),
	}

	router := api.NewRouter(deps)

	// 8. Start metrics server
	observability.StartMetricsServer(fmt.Sprintf(":%d", cfg.Server.MetricsPort))

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
