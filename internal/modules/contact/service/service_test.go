package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/reshetovitsme/telegram-news-sync/internal/modules/contact/domain"
)

type fakeSender struct {
	err   error
	calls []string
	chats []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID, text string) error {
	f.chats = append(f.chats, chatID)
	f.calls = append(f.calls, text)
	return f.err
}

func validRequest() domain.Request {
	return domain.Request{
		Name:    "Иван",
		Phone:   "89123456789",
		Message: "Хочу узнать цену",
		Agree:   true,
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		req        domain.Request
		sendErr    error
		chatID     string
		nilSender  bool
		wantStatus int
		want       Response
		wantSent   int
	}{
		{
			name:       "success",
			req:        validRequest(),
			chatID:     "-100777",
			wantStatus: http.StatusOK,
			want:       Response{Success: true, Message: domain.MsgSent},
			wantSent:   1,
		},
		{
			name:       "honeypot",
			req:        domain.Request{Company: true},
			chatID:     "-100777",
			wantStatus: http.StatusOK,
			want:       Response{Success: true, Message: domain.MsgHoneypot},
		},
		{
			name: "invalid",
			req: func() domain.Request {
				r := validRequest()
				r.Agree = false
				return r
			}(),
			chatID:     "-100777",
			wantStatus: http.StatusUnprocessableEntity,
			want:       Response{Message: domain.MsgNoAgreement},
		},
		{
			name:       "no chat id",
			req:        validRequest(),
			wantStatus: http.StatusInternalServerError,
			want:       Response{Message: domain.MsgUnavailable},
		},
		{
			name:       "no sender",
			req:        validRequest(),
			chatID:     "-100777",
			nilSender:  true,
			wantStatus: http.StatusInternalServerError,
			want:       Response{Message: domain.MsgUnavailable},
		},
		{
			name:       "telegram failure",
			req:        validRequest(),
			chatID:     "-100777",
			sendErr:    errors.New("chat not found"),
			wantStatus: http.StatusBadGateway,
			want:       Response{Message: domain.MsgSendFailed},
			wantSent:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{err: tt.sendErr}
			var svc *Service
			if tt.nilSender {
				svc = New(nil, tt.chatID, "HYPROTEC")
			} else {
				svc = New(sender, tt.chatID, "HYPROTEC")
			}

			status, resp := svc.Submit(context.Background(), tt.req, domain.Meta{IP: "10.0.0.1"})
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.want, resp); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
			if len(sender.calls) != tt.wantSent {
				t.Errorf("sent %d messages, want %d", len(sender.calls), tt.wantSent)
			}
		})
	}
}

func TestSubmitUsesSiteName(t *testing.T) {
	sender := &fakeSender{}
	svc := New(sender, "-100777", "ACME")

	if status, _ := svc.Submit(context.Background(), validRequest(), domain.Meta{Site: "ignored"}); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(sender.calls) != 1 || !strings.HasPrefix(sender.calls[0], "<b>🧾 Заявка с сайта ACME</b>") {
		t.Errorf("unexpected message %q", sender.calls)
	}
	if sender.chats[0] != "-100777" {
		t.Errorf("sent to %q", sender.chats[0])
	}
}
