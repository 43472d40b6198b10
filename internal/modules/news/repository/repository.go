package repository

import (
	"context"

	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
)

// StateRepository persists the sync offset between runs
type StateRepository interface {
	LoadState(ctx context.Context) (domain.SyncState, error)
	SaveState(ctx context.Context, state domain.SyncState) error
}

// NewsRepository persists the bounded news list.
// Implementations recover from unparsable content by returning an empty
// list, so a corrupted store never blocks a sync run.
type NewsRepository interface {
	LoadNews(ctx context.Context) ([]domain.NewsItem, error)
	SaveNews(ctx context.Context, items []domain.NewsItem) error
}

// Repository is what the sync job and the HTTP server need from storage
type Repository interface {
	StateRepository
	NewsRepository
	Close() error
}
