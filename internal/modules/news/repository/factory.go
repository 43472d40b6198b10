package repository

import (
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/oops"
)

// Open returns the backend selected by cfg.StorageBackend
func Open(cfg *config.Config) (Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendFile, "":
		repo, err := NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendBolt:
		repo, err := NewBoltStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, oops.
			Code(sharederrors.CodeConfig).
			With("storage_backend", cfg.StorageBackend).
			Wrap(sharederrors.ErrUnknownBackend)
	}
}
