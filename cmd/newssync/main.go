// Command newssync runs one synchronization pass of the configured Telegram
// channel into the news list and exits.
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
	"github.com/samber/do/v2"
)

func main() {
	logger.Setup(false)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, config.Options{}); err != nil {
		slog.Error("News sync failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts config.Options) error {
	// configuration errors surface here, before any network call
	cfg, err := config.LoadWithOptions(opts)
	if err != nil {
		return err
	}
	if cfg.AppEnv.Debug() {
		logger.Setup(true)
	}
	if err := cfg.ValidateNewsSync(); err != nil {
		return err
	}

	injector, err := di.Setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	svc, err := do.Invoke[*newsService.Service](injector)
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("News sync finished",
		"fetched", result.Fetched,
		"matched", result.Matched,
		"images", result.Images,
		"total", result.Total,
	)
	return nil
}
