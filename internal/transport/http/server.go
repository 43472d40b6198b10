package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	contactDomain "github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/domain"
	contactService "github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/service"
	feedService "github.com/reshetovitsme/telegram-news-sync/internal/modules/feed/service"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/news/repository"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

const maxContactBody = 64 << 10

// Server serves the news list, the RSS feed, downloaded images and the
// contact form endpoint
type Server struct {
	cfg            *config.Config
	news           repository.NewsRepository
	feedService    *feedService.Service
	contactService *contactService.Service
	logger         *slog.Logger
	server         *http.Server
}

// New creates a new HTTP server
func New(cfg *config.Config, news repository.NewsRepository, feedService *feedService.Service, contactService *contactService.Service) *Server {
	return &Server{
		cfg:            cfg,
		news:           news,
		feedService:    feedService,
		contactService: contactService,
		logger:         slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler builds the routed handler with logging and recovery middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /news.json", s.handleNews)
	mux.HandleFunc("GET /rss", s.handleRSSFeed)
	mux.HandleFunc("/api/contact", s.handleContact)
	mux.HandleFunc("GET /health", s.handleHealth)

	imagesPrefix := "/" + strings.Trim(s.cfg.ImagesDir, "/") + "/"
	mux.Handle("GET "+imagesPrefix, http.StripPrefix(imagesPrefix,
		http.FileServer(http.Dir(filepath.FromSlash(s.cfg.ImagesDir)))))

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start listens until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.news.LoadNews(r.Context())
	if err != nil {
		s.logger.Error("Error loading news", "error", err)
		http.Error(w, "Failed to load news", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	rss, err := s.feedService.RSS(r.Context(), baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, rss)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, contactService.Response{Message: contactDomain.MsgNotAllowed})
		return
	}

	// an unreadable body counts as an empty form
	var req contactDomain.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxContactBody))
	if err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			req = contactDomain.Request{}
		}
	}

	status, resp := s.contactService.Submit(r.Context(), req, contactDomain.Meta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

// clientIP is the first X-Forwarded-For entry, else X-Real-IP.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
