package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/starter-bot/pkg/logger"
	"github.com/Proton-105/starter-bot/pkg/metrics"
)

// Handler turns failures inside bot handlers into messages safe to send back to the chat.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err and returns the user-facing message for it.
func (h *Handler) Handle(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		attrs := []any{
			slog.String("code", appErr.Code),
			slog.String("severity", string(appErr.Severity)),
			slog.Any("error", err),
		}
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			attrs = append(attrs, slog.String("correlation_id", correlationID))
		}

		h.log.ErrorContext(ctx, "application error", attrs...)
		metrics.RecordError(appErr.Code, string(appErr.Severity))

		if appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh {
			h.capture(err)
		}

		if appErr.UserMessage == "" {
			return defaultUserMessage
		}
		return appErr.UserMessage
	}

	attrs := []any{
		slog.String("severity", string(SeverityHigh)),
		slog.Any("error", err),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	h.log.ErrorContext(ctx, "unknown error", attrs...)
	metrics.RecordError("unknown", string(SeverityHigh))
	h.capture(err)

	return defaultUserMessage
}

func (h *Handler) capture(err error) {
	captureException(h.sentryEnabled, err)
}

func captureException(enabled bool, err error) {
	if !enabled || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}

			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		sentry.CaptureException(err)
	})
}
