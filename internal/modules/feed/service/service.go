package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/feeds"
	feedDomain "github.com/reshetovitsme/telegram-news-sync/internal/modules/feed/domain"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/repository"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const titleLimit = 100

// Service handles RSS feed generation
type Service struct {
	cfg  feedDomain.FeedConfig
	repo repository.NewsRepository
}

// New creates a new feed service
func New(cfg feedDomain.FeedConfig, repo repository.NewsRepository) *Service {
	return &Service{
		cfg:  cfg,
		repo: repo,
	}
}

// GenerateFeed builds a feed of the persisted news. baseURL prefixes links
// and image sources.
func (s *Service) GenerateFeed(ctx context.Context, baseURL string) (*feeds.Feed, error) {
	items, err := s.repo.LoadNews(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to load news").Wrap(err)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	link := s.cfg.Link
	if link == "" {
		link = baseURL + "/"
	}

	feed := &feeds.Feed{
		Title:       s.cfg.Title,
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("News of %s", s.cfg.Title),
		Items: lo.Map(items, func(item domain.NewsItem, _ int) *feeds.Item {
			return s.newsToFeedItem(item, baseURL)
		}),
	}
	if len(items) > 0 {
		feed.Updated = time.Unix(lo.MaxBy(items, func(a, b domain.NewsItem) bool { return a.Date > b.Date }).Date, 0).UTC()
	}

	return feed, nil
}

// RSS renders the feed as RSS 2.0
func (s *Service) RSS(ctx context.Context, baseURL string) (string, error) {
	feed, err := s.GenerateFeed(ctx, baseURL)
	if err != nil {
		return "", err
	}
	rss, err := feed.ToRss()
	if err != nil {
		return "", oops.With("context", "failed to render rss").Wrap(err)
	}
	return rss, nil
}

func (s *Service) newsToFeedItem(item domain.NewsItem, baseURL string) *feeds.Item {
	content := "<p>" + strings.ReplaceAll(html.EscapeString(item.Text), "\n", "<br>") + "</p>"
	if item.Image != nil {
		content = fmt.Sprintf(`<p><img src="%s/%s" alt=""></p>`, baseURL, html.EscapeString(strings.TrimPrefix(*item.Image, "/"))) + content
	}

	feedItem := &feeds.Item{
		Title:       title(item.Text),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/news.json#%d", baseURL, item.ID)},
		Description: item.Text,
		Content:     content,
		Created:     time.Unix(item.Date, 0).UTC(),
		Id:          fmt.Sprintf("%s-%d", s.cfg.ChannelID, item.ID),
	}
	return feedItem
}

// title is the first line of text, cut to titleLimit runes.
func title(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= titleLimit {
		return line
	}
	return string([]rune(line)[:titleLimit]) + "..."
}
