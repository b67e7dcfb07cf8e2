package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/onramp/pkg/logger"
)

var errorRecorder = func(kind, severity string) {}

// RegisterErrorRecorder allows external packages to count handled errors.
func RegisterErrorRecorder(recorder func(kind, severity string)) {
	if recorder == nil {
		errorRecorder = func(string, string) {}
		return
	}

	errorRecorder = recorder
}

type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err, reports serious failures to Sentry and returns the message to show the user
// along with whether resubmitting may help.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := slog.Default()
	if h != nil && h.log != nil {
		log = h.log
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		attrs := []slog.Attr{
			slog.String("kind", appErr.Kind.String()),
			slog.String("code", appErr.Code),
			slog.String("message", err.Error()),
			slog.String("severity", string(appErr.Severity)),
			slog.Bool("retryable", appErr.Retryable),
		}

		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			attrs = append(attrs, slog.String("correlation_id", correlationID))
		}

		level := slog.LevelWarn
		if appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical {
			level = slog.LevelError
		}
		log.LogAttrs(ctx, level, "on-ramp error", attrs...)
		errorRecorder(appErr.Kind.String(), string(appErr.Severity))

		if h != nil && h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
			h.sendToSentry(ctx, err)
		}

		userMessage := appErr.UserMessage
		if userMessage == "" {
			userMessage = UserMessage(appErr.Kind)
		}

		return userMessage, appErr.Retryable
	}

	attrs := []slog.Attr{
		slog.String("message", err.Error()),
		slog.String("severity", string(SeverityHigh)),
		slog.Bool("retryable", false),
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	log.LogAttrs(ctx, slog.LevelError, "unknown error", attrs...)
	errorRecorder(KindUnknown.String(), string(SeverityHigh))

	if h != nil && h.sentryEnabled {
		h.sendToSentry(ctx, err)
	}

	return UserMessage(KindUnknown), false
}

func (h *Handler) sendToSentry(ctx context.Context, err error) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			scope.SetTag("kind", appErr.Kind.String())
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}

			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		sentry.CaptureException(err)
	})
}
