package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/lca-intake/internal/config"
	"github.com/JonMunkholm/lca-intake/internal/export"
	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
	"github.com/JonMunkholm/lca-intake/internal/metrics"
	"github.com/JonMunkholm/lca-intake/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_sessions", cfg.Session.MaxSessions,
		"session_ttl", cfg.Session.TTL.String(),
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	store := intake.NewStore(cfg.Session.MaxSessions)

	sheets := export.NewCapability(export.DefaultLoader(cfg.Export.XLSXTemplate), cfg.Export.CapabilityTimeout)
	if cfg.Export.Preload {
		slog.Info("preloading spreadsheet capability", "template", cfg.Export.XLSXTemplate)
		sheets.Start()
	}
	exporter := export.NewExporter(sheets)
	limiter := export.NewLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWaitTime)

	server := web.NewServer(store, exporter, limiter, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go store.StartSweeper(jobCtx, cfg.Session.TTL, cfg.Session.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight exports and imports finish (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for exports to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			} else {
				slog.Info("all exports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
