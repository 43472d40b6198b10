package logger

import (
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// New builds the process logger: human-readable lines on stdout and
// JSON error records on stderr, fanned out with slog-multi.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	return slog.New(slogmulti.Fanout(textHandler, jsonHandler))
}

// Setup builds the logger and installs it as the slog default.
func Setup(debug bool) *slog.Logger {
	logger := New(debug)
	slog.SetDefault(logger)
	return logger
}
