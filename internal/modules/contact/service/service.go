package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/domain"
	"github.com/samber/oops"
)

// Sender delivers a formatted message to a Telegram chat
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Response is the JSON body returned to the form
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service relays contact form submissions to a Telegram chat
type Service struct {
	sender Sender
	chatID string
	site   string
}

// New creates a contact relay. A nil sender or empty chatID leaves the relay
// answering that the service is unavailable.
func New(sender Sender, chatID, site string) *Service {
	return &Service{
		sender: sender,
		chatID: chatID,
		site:   site,
	}
}

// Submit validates req and forwards it. It returns the HTTP status and body
// for the caller to write.
func (s *Service) Submit(ctx context.Context, req domain.Request, meta domain.Meta) (int, Response) {
	if req.IsSpam() {
		slog.InfoContext(ctx, "Contact honeypot triggered", "ip", meta.IP)
		return http.StatusOK, Response{Success: true, Message: domain.MsgHoneypot}
	}

	if err := req.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return http.StatusUnprocessableEntity, Response{Message: verr.Message}
		}
		return http.StatusInternalServerError, Response{Message: domain.MsgServerError}
	}

	if s.sender == nil || s.chatID == "" {
		slog.ErrorContext(ctx, "Contact relay is not configured", "chat_id_set", s.chatID != "")
		return http.StatusInternalServerError, Response{Message: domain.MsgUnavailable}
	}

	meta.Site = s.site
	text := domain.Format(req, meta)

	if err := s.sender.SendMessage(ctx, s.chatID, text); err != nil {
		slog.ErrorContext(ctx, "Failed to relay contact request",
			"error", oops.With("chat_id", s.chatID).Wrap(err),
		)
		return http.StatusBadGateway, Response{Message: domain.MsgSendFailed}
	}

	slog.InfoContext(ctx, "Contact request relayed", "chat_id", s.chatID)
	return http.StatusOK, Response{Success: true, Message: domain.MsgSent}
}
