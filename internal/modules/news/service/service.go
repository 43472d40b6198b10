package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/repository"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// Source is the part of the Telegram client the sync job uses
type Source interface {
	GetUpdates(ctx context.Context, offset *int64, limit int) ([]models.Update, error)
	DownloadFile(ctx context.Context, fileID, dst string) error
}

// Options tunes a Service
type Options struct {
	ChannelID        string
	ImagesDir        string
	UpdatesLimit     int
	DownloadWorkers  int
	EmptyPlaceholder string

	// BaseDir is what relative ImagesDir paths resolve against; empty means the working directory.
	BaseDir string
}

// OptionsFromConfig maps configuration onto sync options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChannelID:        cfg.TelegramChannelID,
		ImagesDir:        cfg.ImagesDir,
		UpdatesLimit:     cfg.UpdatesLimit,
		DownloadWorkers:  cfg.DownloadWorkers,
		EmptyPlaceholder: cfg.EmptyTextPlaceholder,
	}
}

// Result summarizes one sync pass
type Result struct {
	Fetched      int
	Matched      int
	Images       int
	Total        int
	LastUpdateID *int64
}

// Service mirrors one Telegram channel into the news repository
type Service struct {
	opts   Options
	source Source
	repo   repository.Repository
}

// New creates a sync service
func New(opts Options, source Source, repo repository.Repository) *Service {
	if opts.DownloadWorkers < 1 {
		opts.DownloadWorkers = 1
	}
	return &Service{
		opts:   opts,
		source: source,
		repo:   repo,
	}
}

// Run performs one synchronization pass: fetch, filter, transform with
// image downloads, merge, persist. Any returned error is fatal for the run.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result

	state, err := s.repo.LoadState(ctx)
	if err != nil {
		return result, oops.With("context", "failed to load sync state").Wrap(err)
	}

	updates, err := s.source.GetUpdates(ctx, state.NextOffset(), s.opts.UpdatesLimit)
	if err != nil {
		return result, err
	}
	result.Fetched = len(updates)

	// advance over every update, channel post or not, so nothing is redelivered
	next := state.Advance(lo.Map(updates, func(u models.Update, _ int) int64 { return u.ID }))
	result.LastUpdateID = next.LastUpdateID

	posts := lo.FilterMap(updates, func(u models.Update, _ int) (*models.Message, bool) {
		return u.ChannelPost, u.ChannelPost != nil && MatchesChannel(u.ChannelPost.Chat, s.opts.ChannelID)
	})
	result.Matched = len(posts)

	existing, err := s.repo.LoadNews(ctx)
	if err != nil {
		return result, oops.With("context", "failed to load news").Wrap(err)
	}
	result.Total = len(existing)

	// without new posts the news list is left untouched
	if len(posts) > 0 {
		incoming := s.transform(ctx, posts)

		// downloads cut short by cancellation must not be committed as missing images
		if err := ctx.Err(); err != nil {
			return result, oops.With("context", "sync cancelled during image downloads").Wrap(err)
		}
		result.Images = lo.CountBy(incoming, func(item domain.NewsItem) bool { return item.Image != nil })

		merged := domain.MergeAll(existing, incoming)
		result.Total = len(merged)

		if err := s.repo.SaveNews(ctx, merged); err != nil {
			return result, oops.With("context", "failed to save news").Wrap(err)
		}
	}

	if err := s.repo.SaveState(ctx, next); err != nil {
		return result, oops.With("context", "failed to save sync state").Wrap(err)
	}

	return result, nil
}

// transform turns posts into news items, downloading photos concurrently.
// Each goroutine owns one slot of items and one destination file.
func (s *Service) transform(ctx context.Context, posts []*models.Message) []domain.NewsItem {
	items := make([]domain.NewsItem, len(posts))

	var g errgroup.Group
	g.SetLimit(s.opts.DownloadWorkers)

	for i, post := range posts {
		items[i] = domain.NewsItem{
			ID:   int64(post.ID),
			Text: s.postText(post),
			Date: int64(post.Date),
		}

		if len(post.Photo) == 0 {
			continue
		}

		g.Go(func() error {
			items[i].Image = s.downloadImage(ctx, post)
			return nil
		})
	}
	_ = g.Wait()

	return items
}

// downloadImage fetches the largest photo variant. Failures are logged and
// yield no image; they never fail the run.
func (s *Service) downloadImage(ctx context.Context, post *models.Message) *string {
	largest := post.Photo[len(post.Photo)-1]
	relPath := domain.ImagePath(s.opts.ImagesDir, int64(post.ID))

	dst := filepath.Join(s.opts.BaseDir, filepath.FromSlash(relPath))
	if err := s.source.DownloadFile(ctx, largest.FileID, dst); err != nil {
		slog.WarnContext(ctx, "Image download failed, keeping post without image",
			"message_id", post.ID,
			"error", oops.Code(sharederrors.CodeImage).With("message_id", post.ID).Wrap(err),
		)
		return nil
	}

	slog.DebugContext(ctx, "Image downloaded", "message_id", post.ID, "path", relPath)
	return &relPath
}

func (s *Service) postText(post *models.Message) string {
	switch {
	case post.Text != "":
		return post.Text
	case post.Caption != "":
		return post.Caption
	default:
		return s.opts.EmptyPlaceholder
	}
}

// MatchesChannel reports whether chat is the configured channel. target is
// either the numeric id ("-1001234567890") or "@username"; only exact
// matches count.
func MatchesChannel(chat models.Chat, target string) bool {
	if target == "" {
		return false
	}
	if strconv.FormatInt(chat.ID, 10) == target {
		return true
	}
	return chat.Username != "" && "@"+chat.Username == target
}
