package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/oops"
	bolt "go.etcd.io/bbolt"
)

const boltFileName = "news.db"

var (
	bucketState = []byte("state")
	bucketNews  = []byte("news")

	keyState = []byte("sync_state")
	keyNews  = []byte("items")
)

// BoltStorage implements Repository on a single bbolt database file
type BoltStorage struct {
	db   *bolt.DB
	path string
}

// NewBoltStorage opens (or creates) basePath/news.db
func NewBoltStorage(basePath string) (*BoltStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.
			Code(sharederrors.CodePersistence).
			With("base_path", basePath, "context", "failed to create storage directory").
			Wrap(err)
	}

	path := filepath.Join(basePath, boltFileName)
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, oops.
			Code(sharederrors.CodePersistence).
			With("path", path, "context", "failed to open bolt database").
			Wrap(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketState, bucketNews} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, oops.
			Code(sharederrors.CodePersistence).
			With("path", path, "context", "failed to create buckets").
			Wrap(err)
	}

	return &BoltStorage{db: db, path: path}, nil
}

func (s *BoltStorage) LoadState(ctx context.Context) (domain.SyncState, error) {
	var state domain.SyncState
	if err := s.get(ctx, bucketState, keyState, &state); err != nil {
		return domain.SyncState{}, err
	}
	return state, nil
}

func (s *BoltStorage) SaveState(ctx context.Context, state domain.SyncState) error {
	return s.put(bucketState, keyState, state)
}

func (s *BoltStorage) LoadNews(ctx context.Context) ([]domain.NewsItem, error) {
	var items []domain.NewsItem
	if err := s.get(ctx, bucketNews, keyNews, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	return items, nil
}

func (s *BoltStorage) SaveNews(ctx context.Context, items []domain.NewsItem) error {
	if items == nil {
		items = []domain.NewsItem{}
	}
	return s.put(bucketNews, keyNews, items)
}

func (s *BoltStorage) Close() error { return s.db.Close() }

func (s *BoltStorage) get(ctx context.Context, bucket, key []byte, v any) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return nil
		}
		// data is only valid inside the transaction
		decodeOrDefault(ctx, s.path+":"+string(bucket), data, v)
		return nil
	})
	if err != nil {
		return oops.
			Code(sharederrors.CodePersistence).
			With("path", s.path, "bucket", string(bucket)).
			Wrap(err)
	}
	return nil
}

func (s *BoltStorage) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return oops.
			Code(sharederrors.CodePersistence).
			With("bucket", string(bucket), "context", "failed to marshal").
			Wrap(err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
	if err != nil {
		return oops.
			Code(sharederrors.CodePersistence).
			With("path", s.path, "bucket", string(bucket)).
			Wrap(err)
	}
	return nil
}
