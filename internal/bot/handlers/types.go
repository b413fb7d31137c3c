package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/pkg/logger"
)

// correlationKey is the telebot.Context slot holding the update's correlation identifier.
const correlationKey = "correlation_id"

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// AttachCorrelationID assigns a correlation identifier to the update unless one is present.
func AttachCorrelationID(c telebot.Context) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Get(correlationKey).(string); ok && id != "" {
		return id
	}

	ctx := logger.WithCorrelationID(context.Background(), "")
	id := logger.CorrelationIDFromContext(ctx)
	c.Set(correlationKey, id)
	return id
}

// Context derives a context.Context carrying the update's correlation identifier.
func Context(c telebot.Context) context.Context {
	return logger.WithCorrelationID(context.Background(), AttachCorrelationID(c))
}
