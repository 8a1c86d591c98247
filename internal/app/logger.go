package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/mangalend-backend/internal/config"
)

const serviceName = "mangalend"

// NewLogger builds the process logger, writes to stderr and installs it as
// the slog default. Every record carries the service name and version.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := slog.New(newHandler(os.Stderr, cfg)).With(
		slog.String("service", serviceName),
		slog.String("version", Version),
	)
	slog.SetDefault(logger)
	return logger
}

// newHandler picks JSON unless cfg asks for text. Text output adds source
// locations for local debugging.
func newHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	text := strings.EqualFold(strings.TrimSpace(cfg.Format), "text")
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: text,
	}
	if text {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
