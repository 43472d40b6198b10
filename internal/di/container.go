package di

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	contactService "github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/service"
	feedDomain "github.com/reshetovitsme/telegram-news-sync/internal/modules/feed/domain"
	feedService "github.com/reshetovitsme/telegram-news-sync/internal/modules/feed/service"
	newsRepo "github.com/reshetovitsme/telegram-news-sync/internal/modules/news/repository"
	newsService "github.com/reshetovitsme/telegram-news-sync/internal/modules/news/service"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	httpServer "github.com/reshetovitsme/telegram-news-sync/internal/transport/http"
	"github.com/reshetovitsme/telegram-news-sync/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container around a loaded
// config. Providers are lazy: nothing is built until a command invokes it.
func Setup(cfg *config.Config) (do.Injector, error) {
	if cfg == nil {
		return nil, oops.Errorf("config is required")
	}

	injector := do.New()

	// Closers of services that were actually built, released by Shutdown
	do.ProvideValue(injector, &closers{})

	// Register Config
	do.ProvideValue(injector, cfg)

	// Register News Repository
	do.Provide(injector, func(i do.Injector) (newsRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := newsRepo.Open(cfg)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "storage_backend", cfg.StorageBackend, "context", "failed to initialize news repository").Wrap(err)
		}
		do.MustInvoke[*closers](i).add(func() error {
			if err := repo.Close(); err != nil {
				return oops.With("context", "failed to close news repository").Wrap(err)
			}
			return nil
		})
		return repo, nil
	})

	// Register Telegram Client
	do.Provide(injector, func(i do.Injector) (*telegram.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return telegram.New(cfg)
	})

	// Register News Service
	do.Provide(injector, func(i do.Injector) (*newsService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if err := cfg.ValidateNewsSync(); err != nil {
			return nil, err
		}
		client, err := do.Invoke[*telegram.Client](i)
		if err != nil {
			return nil, err
		}
		repo, err := do.Invoke[newsRepo.Repository](i)
		if err != nil {
			return nil, err
		}
		return newsService.New(newsService.OptionsFromConfig(cfg), client, repo), nil
	})

	// Register Scheduler
	do.Provide(injector, func(i do.Injector) (*newsService.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		svc, err := do.Invoke[*newsService.Service](i)
		if err != nil {
			return nil, err
		}
		scheduler := newsService.NewScheduler(svc, cfg.Interval())
		do.MustInvoke[*closers](i).add(func() error {
			scheduler.Stop()
			return nil
		})
		return scheduler, nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := do.Invoke[newsRepo.Repository](i)
		if err != nil {
			return nil, err
		}
		return feedService.New(feedDomain.FeedConfig{
			ChannelID: cfg.TelegramChannelID,
			Title:     cfg.SiteName,
		}, repo), nil
	})

	// Register Contact Service
	do.Provide(injector, func(i do.Injector) (*contactService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client, err := do.Invoke[*telegram.Client](i)
		if err != nil {
			return nil, err
		}
		return contactService.New(client, cfg.ContactChatID, cfg.SiteName), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := do.Invoke[newsRepo.Repository](i)
		if err != nil {
			return nil, err
		}
		server := httpServer.New(cfg, repo,
			do.MustInvoke[*feedService.Service](i),
			do.MustInvoke[*contactService.Service](i),
		)
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

type closers struct {
	mu  sync.Mutex
	fns []func() error
}

func (c *closers) add(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// Shutdown stops the scheduler and closes the repository, if they were built.
// Later services are released first.
func Shutdown(injector do.Injector) error {
	c, err := do.Invoke[*closers](injector)
	if err != nil {
		return err
	}

	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	var errs []error
	for _, fn := range slices.Backward(fns) {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}

	slog.Debug("Container shut down", "released", len(fns))
	return errors.Join(errs...)
}
