// Package errors holds the sentinel errors shared across modules.
// Callers wrap them with oops for context and match them with errors.Is.
package errors

import "errors"

// Configuration errors are fatal at startup, before any network call.
var (
	ErrMissingBotToken  = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingChannelID = errors.New("TELEGRAM_CHANNEL_ID environment variable is required")
	ErrUnknownBackend   = errors.New("unknown storage backend")
	ErrInvalidImagesDir = errors.New("IMAGES_DIR must be a relative path inside the site root")
)

var (
	// ErrTransport means the HTTP call failed or returned a non-2xx status.
	ErrTransport = errors.New("telegram transport failure")
	// ErrUpstream means the Bot API answered with ok=false.
	ErrUpstream = errors.New("telegram api error")
	// ErrImageDownload is recovered per post; the post is kept without an image.
	ErrImageDownload = errors.New("image download failed")
	// ErrStateCorruption is recovered by falling back to the default value.
	ErrStateCorruption = errors.New("persisted data is corrupted")
)

// Oops error codes attached alongside the sentinels.
const (
	CodeConfig      = "config"
	CodeTransport   = "transport"
	CodeUpstream    = "upstream"
	CodeImage       = "image_download"
	CodeCorruption  = "state_corruption"
	CodePersistence = "persistence"
)
