package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/atomicfile"
	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	stateFileName = "state.json"
	newsFileName  = "news.json"
)

// FileStorage implements Repository with two JSON files under basePath
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a file-based repository rooted at basePath
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.
			Code(sharederrors.CodePersistence).
			With("base_path", basePath, "context", "failed to create storage directory").
			Wrap(err)
	}

	return &FileStorage{basePath: basePath}, nil
}

func (s *FileStorage) LoadState(ctx context.Context) (domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state domain.SyncState
	if err := s.readJSON(ctx, stateFileName, &state); err != nil {
		return domain.SyncState{}, err
	}
	return state, nil
}

func (s *FileStorage) SaveState(ctx context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSON(stateFileName, state)
}

func (s *FileStorage) LoadNews(ctx context.Context) ([]domain.NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []domain.NewsItem
	if err := s.readJSON(ctx, newsFileName, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	return items, nil
}

func (s *FileStorage) SaveNews(ctx context.Context, items []domain.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items == nil {
		items = []domain.NewsItem{}
	}
	return s.writeJSON(newsFileName, items)
}

func (s *FileStorage) Close() error { return nil }

// readJSON leaves v untouched when the file is missing, empty or corrupted.
func (s *FileStorage) readJSON(ctx context.Context, name string, v any) error {
	path := filepath.Join(s.basePath, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.
			Code(sharederrors.CodePersistence).
			With("path", path, "context", "failed to read file").
			Wrap(err)
	}

	decodeOrDefault(ctx, path, data, v)
	return nil
}

func (s *FileStorage) writeJSON(name string, v any) error {
	path := filepath.Join(s.basePath, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return oops.
			Code(sharederrors.CodePersistence).
			With("path", path, "context", "failed to marshal").
			Wrap(err)
	}

	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		return oops.
			Code(sharederrors.CodePersistence).
			With("path", path, "context", "failed to write file").
			Wrap(err)
	}
	return nil
}
