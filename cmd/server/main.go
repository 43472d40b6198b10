package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reshetovitsme/telegram-news-sync/internal/di"
	newsService "github.com/reshetovitsme/telegram-news-sync/internal/modules/news/service"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/logger"
	httpServer "github.com/reshetovitsme/telegram-news-sync/internal/transport/http"
	"github.com/samber/do/v2"
)

func main() {
	logger.Setup(false)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, config.Options{}); err != nil {
		slog.Error("Server failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. Any error, including a failed listen,
// is returned after the container is shut down.
func run(ctx context.Context, opts config.Options) error {
	cfg, err := config.LoadWithOptions(opts)
	if err != nil {
		return err
	}
	if cfg.AppEnv.Debug() {
		logger.Setup(true)
	}

	// Setup dependency injection
	injector, err := di.Setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	// Periodic sync runs only when a channel and an interval are configured
	if cfg.Interval() > 0 {
		if err := cfg.ValidateNewsSync(); err != nil {
			return err
		}
		scheduler, err := do.Invoke[*newsService.Scheduler](injector)
		if err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		return err
	}

	slog.Info("Application started", "port", cfg.HTTPPort, "env", cfg.AppEnv.String(), "sync_interval", cfg.Interval())
	slog.Info("Press Ctrl+C to stop")

	if err := server.Start(ctx); err != nil {
		return err
	}
	slog.Info("Shutting down...")
	return nil
}
