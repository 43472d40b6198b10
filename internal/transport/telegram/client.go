package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/atomicfile"
	"github.com/reshetovitsme/telegram-news-sync/internal/shared/config"
	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/oops"
)

// Client talks to the Telegram Bot API. getUpdates is issued directly so the
// caller controls the offset of a single page; file and message calls go
// through go-telegram/bot.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	bot        *bot.Bot
}

// apiResponse is the envelope of every Bot API answer
type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// New creates a client for the API and credentials in cfg
func New(cfg *config.Config) (*Client, error) {
	return NewWithHTTPClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, &http.Client{Timeout: cfg.Timeout()})
}

// NewWithHTTPClient creates a client against apiURL using httpClient for every call
func NewWithHTTPClient(apiURL, token string, httpClient *http.Client) (*Client, error) {
	if token == "" {
		return nil, oops.Code(sharederrors.CodeConfig).Wrap(sharederrors.ErrMissingBotToken)
	}

	b, err := bot.New(token,
		bot.WithSkipGetMe(),
		bot.WithServerURL(apiURL),
		bot.WithHTTPClient(httpClient.Timeout, httpClient),
	)
	if err != nil {
		return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
	}

	return &Client{
		apiURL:     apiURL,
		token:      token,
		httpClient: httpClient,
		bot:        b,
	}, nil
}

// GetUpdates fetches one page of channel_post updates starting at offset.
// A nil offset asks for everything the API still retains.
func (c *Client) GetUpdates(ctx context.Context, offset *int64, limit int) ([]models.Update, error) {
	query := url.Values{}
	if offset != nil {
		query.Set("offset", strconv.FormatInt(*offset, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("allowed_updates", `["channel_post"]`)

	var updates []models.Update
	if err := c.call(ctx, "getUpdates", query, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// DownloadFile resolves fileID and stores its content at dst.
func (c *Client) DownloadFile(ctx context.Context, fileID, dst string) error {
	errb := oops.Code(sharederrors.CodeImage).With("file_id", fileID, "destination", dst)

	file, err := c.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return errb.With("step", "getFile").Wrap(fmt.Errorf("%w: %w", sharederrors.ErrImageDownload, redact(err, c.token)))
	}
	if file.FilePath == "" {
		return errb.With("step", "getFile").Wrap(fmt.Errorf("%w: empty file_path", sharederrors.ErrImageDownload))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bot.FileDownloadLink(file), nil)
	if err != nil {
		return errb.Wrap(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errb.With("step", "download").Wrap(fmt.Errorf("%w: %w", sharederrors.ErrImageDownload, redact(err, c.token)))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errb.
			With("step", "download", "status", resp.StatusCode).
			Wrap(fmt.Errorf("%w: unexpected status %s", sharederrors.ErrImageDownload, resp.Status))
	}

	err = atomicfile.Write(dst, 0644, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
	if err != nil {
		return errb.With("step", "write").Wrap(fmt.Errorf("%w: %w", sharederrors.ErrImageDownload, err))
	}
	return nil
}

// SendMessage posts an HTML message to chatID with link previews disabled
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	if err != nil {
		return oops.
			Code(sharederrors.CodeTransport).
			With("method", "sendMessage", "chat_id", chatID).
			Wrap(fmt.Errorf("%w: %w", sharederrors.ErrTransport, redact(err, c.token)))
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, query url.Values, result any) error {
	errb := oops.In("telegram").With("method", method)

	// the token is part of the path; never log this URL
	endpoint := c.apiURL + "/bot" + c.token + "/" + method
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errb.Code(sharederrors.CodeTransport).Wrap(fmt.Errorf("%w: %w", sharederrors.ErrTransport, redact(err, c.token)))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errb.Code(sharederrors.CodeTransport).Wrap(fmt.Errorf("%w: %w", sharederrors.ErrTransport, redact(err, c.token)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errb.Code(sharederrors.CodeTransport).Wrap(fmt.Errorf("%w: reading body: %w", sharederrors.ErrTransport, err))
	}

	envelope := apiResponse[json.RawMessage]{}
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errb = errb.With("status", resp.StatusCode)
		if decodeErr == nil && envelope.Description != "" {
			errb = errb.With("description", envelope.Description)
		}
		return errb.Code(sharederrors.CodeTransport).Wrap(fmt.Errorf("%w: unexpected status %s", sharederrors.ErrTransport, resp.Status))
	}

	if decodeErr != nil {
		return errb.Code(sharederrors.CodeUpstream).Wrap(fmt.Errorf("%w: malformed response: %w", sharederrors.ErrUpstream, decodeErr))
	}
	if !envelope.OK {
		return errb.
			Code(sharederrors.CodeUpstream).
			With("error_code", envelope.ErrorCode).
			Wrap(fmt.Errorf("%w: %s", sharederrors.ErrUpstream, envelope.Description))
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return errb.Code(sharederrors.CodeUpstream).Wrap(fmt.Errorf("%w: malformed result: %w", sharederrors.ErrUpstream, err))
	}
	return nil
}
