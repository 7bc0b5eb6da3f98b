// Package main implements the wa-exporter command, the Prometheus exporter
// for the WhatsApp LLM bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/t0mer/wa-llm-exporter/collector"
	"github.com/t0mer/wa-llm-exporter/config"
	"github.com/t0mer/wa-llm-exporter/metric"
	"github.com/t0mer/wa-llm-exporter/scrape"
	"github.com/t0mer/wa-llm-exporter/server"
	"github.com/t0mer/wa-llm-exporter/store"
	"github.com/t0mer/wa-llm-exporter/tracing"
	"github.com/t0mer/wa-llm-exporter/whatsapp"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "wa-exporter"
)

// startupPingTimeout bounds the informational database ping at startup
const startupPingTimeout = 5 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCommand().Execute(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts *cliOptions) error {
	if opts.ShowVersion {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (built %s)\n", appName, Version, BuildTime)
		return nil
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	if opts.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	logger.Info("Starting WhatsApp exporter",
		"version", Version,
		"build_time", BuildTime,
		"port", cfg.Server.Port)
	logger.Debug("Effective configuration", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// serve wires the exporter and blocks until ctx is done or the listener fails
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	provider, err := tracing.Init(ctx, cfg.TracingProviderConfig(appName, Version))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	if provider.Enabled() {
		logger.Info("Tracing enabled", "endpoint", cfg.Tracing.Endpoint, "protocol", cfg.Tracing.Protocol)
	}

	registry, err := metric.NewRegistry()
	if err != nil {
		return fmt.Errorf("create metric registry: %w", err)
	}

	db, err := store.Open(cfg.StoreConfig(), registry.State, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	if err := db.TestConnection(pingCtx); err != nil {
		logger.Warn("Database not reachable yet, continuing", "error", err)
	}
	cancel()

	api, err := whatsapp.NewClient(cfg.WhatsAppClientConfig(), registry.State, logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create whatsapp client: %w", err)
	}

	scraper, err := scrape.New(registry,
		collector.Defaults(db, api, time.Now, logger),
		scrape.WithCollectorTimeout(cfg.Scrape.CollectorTimeout),
		scrape.WithTracer(provider.Tracer()),
		scrape.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create scraper: %w", err)
	}

	srv := server.New(cfg.ServerConfig(), scraper, db, scraper.Monitor(), logger)
	if err := srv.Start(); err != nil {
		_ = db.Close()
		return fmt.Errorf("start server: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case serveErr = <-srv.Errors():
		logger.Error("HTTP server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown error", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("Database close error", "error", err)
	}

	logger.Info("Shutdown complete")
	return serveErr
}
