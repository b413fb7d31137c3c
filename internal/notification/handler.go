// Package notification reacts to user lifecycle facts. Delivery channels (email, push) are not
// wired yet; the handler records receipt only.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/starter-bot/internal/events"
	"github.com/Proton-105/starter-bot/pkg/logger"
)

const handlerName = "notification.user_started"

// Handler consumes UserStarted facts off the publisher's goroutine.
type Handler struct {
	log *slog.Logger
}

// NewHandler constructs a notification handler.
func NewHandler(log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log}
}

// Register subscribes the handler for asynchronous dispatch and returns the unsubscribe func.
func (h *Handler) Register(bus *events.Bus) func() {
	return bus.Subscribe(events.TopicUserStarted, handlerName, h, events.DispatchAsync)
}

// Handle logs receipt of a UserStarted fact.
func (h *Handler) Handle(ctx context.Context, fact events.Fact) error {
	started, ok := fact.(events.UserStarted)
	if !ok {
		return fmt.Errorf("notification: unexpected fact %T on %s", fact, events.TopicUserStarted)
	}

	attrs := []any{
		slog.Int64("user_id", started.User.ID),
		slog.Int64("telegram_id", started.User.TelegramID),
		slog.String("username", started.User.Username),
		slog.String("source", started.Source),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	h.log.InfoContext(ctx, "user started", attrs...)

	return nil
}
