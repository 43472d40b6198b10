package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
	contactDomain "github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/domain"
	contactService "github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/service"
	feedDomain "github.com/reshetovitsme/telegram-news-sync/internal/modules/feed/domain"
	feedService "github.com/reshetovitsme/telegram-news-sync/internal/modules/feed/service"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/domain"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/repository"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	"github.com/samber/lo"
)

type recordingSender struct {
	texts []string
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

type fixture struct {
	ts     *httptest.Server
	repo   *repository.MemoryStorage
	sender *recordingSender
	images string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	images := filepath.Join(t.TempDir(), "images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{ImagesDir: filepath.ToSlash(images), TelegramChannelID: "@hyprotec", SiteName: "HYPROTEC"}
	repo := repository.NewMemoryStorage()
	sender := &recordingSender{}

	srv := New(cfg, repo,
		feedService.New(feedDomain.FeedConfig{ChannelID: cfg.TelegramChannelID, Title: cfg.SiteName}, repo),
		contactService.New(sender, "-100777", cfg.SiteName),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{ts: ts, repo: repo, sender: sender, images: images}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func (f *fixture) postContact(t *testing.T, body string, header http.Header) (int, contactService.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/contact", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out contactService.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func TestNewsJSON(t *testing.T) {
	f := newFixture(t)
	want := []domain.NewsItem{
		{ID: 2, Text: "two", Date: 200, Image: lo.ToPtr("data/images/news_2.jpg")},
		{ID: 1, Text: "one", Date: 100},
	}
	if err := f.repo.SaveNews(context.Background(), want); err != nil {
		t.Fatal(err)
	}

	resp, body := f.get(t, "/news.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}

	var got []domain.NewsItem
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("news mismatch (-want +got):\n%s", diff)
	}
}

func TestNewsJSONEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/news.json")
	if strings.TrimSpace(body) != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestRSSRoute(t *testing.T) {
	f := newFixture(t)
	if err := f.repo.SaveNews(context.Background(), []domain.NewsItem{{ID: 5, Text: "Hello", Date: 1700000000}}); err != nil {
		t.Fatal(err)
	}

	resp, body := f.get(t, "/rss")
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/rss+xml") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Items) != 1 || feed.Items[0].GUID != "@hyprotec-5" {
		t.Errorf("unexpected items %+v", feed.Items)
	}
}

func TestImages(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(filepath.Join(f.images, "news_3.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	prefix := "/" + strings.Trim(filepath.ToSlash(f.images), "/") + "/"
	resp, body := f.get(t, prefix+"news_3.jpg")
	if resp.StatusCode != http.StatusOK || body != "jpeg" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}

	resp, _ = f.get(t, prefix+"missing.jpg")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing image status = %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/health")
	if resp.StatusCode != http.StatusOK || body != `{"status":"ok"}` {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
}

func TestContactMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/api/contact")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out contactService.Response
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatal(err)
	}
	if out.Success || out.Message != contactDomain.MsgNotAllowed {
		t.Errorf("got %+v", out)
	}
}

func TestContact(t *testing.T) {
	f := newFixture(t)
	header := http.Header{
		"X-Forwarded-For": {"203.0.113.7, 10.0.0.1"},
		"User-Agent":      {"form-test"},
	}

	status, out := f.postContact(t, `{"name":"Иван","phone":"8 (912) 345-67-89","message":"Цена?","agree":"true"}`, header)
	if status != http.StatusOK || !out.Success || out.Message != contactDomain.MsgSent {
		t.Fatalf("got %d %+v", status, out)
	}
	if len(f.sender.texts) != 1 {
		t.Fatalf("sent %d messages", len(f.sender.texts))
	}
	text := f.sender.texts[0]
	for _, want := range []string{"<i>IP:</i> 203.0.113.7", "<i>UA:</i> form-test", "— <b>Имя:</b> Иван"} {
		if !strings.Contains(text, want) {
			t.Errorf("message lacks %q:\n%s", want, text)
		}
	}
}

func TestContactBadBody(t *testing.T) {
	f := newFixture(t)
	status, out := f.postContact(t, `not json`, nil)
	if status != http.StatusUnprocessableEntity || out.Message != contactDomain.MsgNoName {
		t.Errorf("got %d %+v", status, out)
	}
}

func TestContactHoneypot(t *testing.T) {
	f := newFixture(t)
	status, out := f.postContact(t, `{"company":"spam inc"}`, nil)
	if status != http.StatusOK || out.Message != contactDomain.MsgHoneypot {
		t.Errorf("got %d %+v", status, out)
	}
	if len(f.sender.texts) != 0 {
		t.Error("honeypot submission was relayed")
	}
}

func TestContactFalsyHoneypotIsRelayed(t *testing.T) {
	f := newFixture(t)
	for _, company := range []string{`false`, `0`, `null`, `""`} {
		body := `{"name":"Иван","phone":"+79123456789","message":"Цена?","agree":true,"company":` + company + `}`
		status, out := f.postContact(t, body, nil)
		if status != http.StatusOK || out.Message != contactDomain.MsgSent {
			t.Errorf("company=%s: got %d %+v", company, status, out)
		}
	}
	if len(f.sender.texts) != 4 {
		t.Errorf("relayed %d of 4 submissions", len(f.sender.texts))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		header http.Header
		want   string
	}{
		{http.Header{"X-Forwarded-For": {" 1.1.1.1 , 2.2.2.2"}, "X-Real-Ip": {"3.3.3.3"}}, "1.1.1.1"},
		{http.Header{"X-Real-Ip": {"3.3.3.3"}}, "3.3.3.3"},
		{http.Header{}, ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		r.Header = tt.header
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%v) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
