package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/middleware"
)

const fallbackUserMessage = "⚠️ Something went wrong. Please try again later."

// RecoveryMiddleware turns handler panics into internal errors answered in the chat.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				ctx := handlers.Context(c)
				log.ErrorContext(ctx, "panic recovered in handler",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				notify(ctx, log, c, userMessage(ctx, errHandler, errors.NewInternalError(fmt.Errorf("panic recovered: %v", r))))
				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler errors and answers the chat with a safe message.
// The error is consumed so telebot's OnError does not log it twice.
func ErrorHandlingMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if err := next(c); err != nil {
				ctx := handlers.Context(c)
				notify(ctx, log, c, userMessage(ctx, errHandler, err))
			}
			return nil
		}
	}
}

// LoggingMiddleware writes one record per update with its outcome and duration.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			ctx := handlers.Context(c)

			err := next(c)

			var userID int64
			if sender := c.Sender(); sender != nil {
				userID = sender.ID
			}

			level := slog.LevelInfo
			if err != nil {
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "handled update",
				slog.Int64("user_id", userID),
				slog.String("command", middleware.CommandName(c)),
				slog.String("correlation_id", handlers.AttachCorrelationID(c)),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

func userMessage(ctx context.Context, errHandler *errors.Handler, err error) string {
	if errHandler == nil {
		return fallbackUserMessage
	}
	if msg := errHandler.Handle(ctx, err); msg != "" {
		return msg
	}
	return fallbackUserMessage
}

func notify(ctx context.Context, log *slog.Logger, c telebot.Context, msg string) {
	if c == nil {
		return
	}
	if err := c.Send(msg); err != nil {
		log.ErrorContext(ctx, "failed to notify user about error", slog.Any("error", err))
	}
}
