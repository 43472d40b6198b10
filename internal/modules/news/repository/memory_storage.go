package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
)

// MemoryStorage keeps state and news in memory. Save errors can be injected
// to exercise the sync job's failure paths.
type MemoryStorage struct {
	mu    sync.RWMutex
	state domain.SyncState
	news  []domain.NewsItem

	SaveStateErr error
	SaveNewsErr  error

	stateSaves int
	newsSaves  int
}

// NewMemoryStorage returns an empty in-memory repository
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) LoadState(ctx context.Context) (domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state), nil
}

func (s *MemoryStorage) SaveState(ctx context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveStateErr != nil {
		return s.SaveStateErr
	}
	s.state = copyState(state)
	s.stateSaves++
	return nil
}

func (s *MemoryStorage) LoadNews(ctx context.Context) ([]domain.NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.news == nil {
		return []domain.NewsItem{}, nil
	}
	return slices.Clone(s.news), nil
}

func (s *MemoryStorage) SaveNews(ctx context.Context, items []domain.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveNewsErr != nil {
		return s.SaveNewsErr
	}
	s.news = slices.Clone(items)
	s.newsSaves++
	return nil
}

func (s *MemoryStorage) Close() error { return nil }

// Saves reports how many successful state and news writes happened.
func (s *MemoryStorage) Saves() (state, news int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateSaves, s.newsSaves
}

func copyState(state domain.SyncState) domain.SyncState {
	if state.LastUpdateID == nil {
		return domain.SyncState{}
	}
	id := *state.LastUpdateID
	return domain.SyncState{LastUpdateID: &id}
}
