// Package main is the entrypoint for the ProofPick API server.
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

	"github.com/proofpick/proofpick/internal/api"
	"github.com/proofpick/proofpick/internal/api/handler"
	mw "github.com/proofpick/proofpick/internal/api/middleware"
	"github.com/proofpick/proofpick/internal/config"
	"github.com/proofpick/proofpick/internal/downloads"
	"github.com/proofpick/proofpick/internal/drive"
	"github.com/proofpick/proofpick/internal/jobstore"
	"github.com/proofpick/proofpick/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 5 * time.Minute
)

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
	slog.Info("config loaded", "env", cfg.Server.Env, "archive_dir", cfg.Downloads.ArchiveDir)

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

	// 4. Create job store: Redis when configured, in-memory otherwise
	var jobs jobstore.Store
	if cfg.Redis.URL != "" {
		redisJobs, err := jobstore.NewRedisStore(cfg.Redis.URL, cfg.Downloads.JobRetention)
		if err != nil {
			return fmt.Errorf("create redis job store: %w", err)
		}
		defer redisJobs.Close()

		if err := redisJobs.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		jobs = redisJobs
		slog.Info("redis job store connected")
	} else {
		jobs = jobstore.NewMemoryStore(cfg.Downloads.JobRetention)
		slog.Info("in-memory job store initialized")
	}

	// 5. Create store and drive client
	pgStore := store.NewPostgresStore(pool)
	driveClient := drive.NewHTTPClient(
		cfg.Drive.APIBaseURL, cfg.Drive.APIKey, cfg.Drive.FallbackBaseURL, cfg.Drive.FetchTimeout)

	// 6. Archive build orchestrator and file janitor
	orchestrator := downloads.New(pgStore, jobs, driveClient, downloads.Config{
		ArchiveDir:        cfg.Downloads.ArchiveDir,
		MaxConcurrentJobs: cfg.Downloads.MaxConcurrentJobs,
		FetchTimeout:      cfg.Drive.FetchTimeout,
	}, slog.Default())

	janitor := downloads.NewJanitor(
		cfg.Downloads.ArchiveDir, cfg.Downloads.JobRetention, sweepInterval, slog.Default())
	janitor.Start()
	defer janitor.Stop()

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Admin.KeyHash),
		RateLimit: mw.NewRateLimit(jobs, cfg.Downloads.RateLimitPerMin),

		HealthHandler: handler.NewHealthHandler(pgStore, jobs),

		GetSelection:    handler.NewGetSelectionHandler(pgStore),
		SelectionByCode: handler.NewSelectionByCodeHandler(pgStore),
		UpdateSelection: handler.NewUpdateSelectionHandler(pgStore),

		CreateSelection: handler.NewCreateSelectionHandler(pgStore),
		ListSelections:  handler.NewListSelectionsHandler(pgStore),
		DeleteSelection: handler.NewDeleteSelectionHandler(pgStore),

		StartDownload: handler.NewStartDownloadHandler(orchestrator),
		SyncDownload:  handler.NewSyncDownloadHandler(pgStore, orchestrator),
		JobStatus:     handler.NewJobStatusHandler(jobs),
		ServeArchive:  handler.NewServeArchiveHandler(jobs),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Write timeout must cover a full synchronous archive stream.
		WriteTimeout: 5 * time.Minute,
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

	// Let in-flight archive builds settle before exiting
	orchestrator.Shutdown(shutdownTimeout)

	slog.Info("server stopped gracefully")
	return nil
}
