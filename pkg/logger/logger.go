// Package logger builds the application's slog logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/onramp/pkg/config"
)

var level = new(slog.LevelVar)

// New creates a logger from cfg: JSON or text, stdout or a rotating file, sensitive keys
// masked, and error records mirrored to Sentry when it is enabled.
func New(cfg config.Config) *slog.Logger {
	SetLevel(cfg.Logger.Level)

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	if cfg.Logger.File.Path != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Logger.File.Path,
			MaxSize:    cfg.Logger.File.MaxSizeMB,
			MaxBackups: cfg.Logger.File.MaxBackups,
			MaxAge:     cfg.Logger.File.MaxAgeDays,
			Compress:   cfg.Logger.File.Compress,
		}
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	if cfg.Sentry.Enabled {
		handler = newTeeHandler(handler, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
	}

	return slog.New(NewMaskingHandler(handler)).With(slog.String("env", cfg.AppEnv))
}

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// teeHandler fans records out to several handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) slog.Handler {
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithGroup(name))
	}
	return &teeHandler{handlers: next}
}
