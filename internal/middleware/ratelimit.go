package middleware

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
	"github.com/Proton-105/starter-bot/internal/ratelimit"
	"github.com/Proton-105/starter-bot/pkg/config"
)

// RateLimitMessage is sent to users who exceeded their command budget.
const RateLimitMessage = "Too many requests. Please slow down and try again in a minute."

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	cfg     config.RateLimitConfig
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, cfg config.RateLimitConfig, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// Handle wraps next so that senders over their budget get a notice instead of a response.
// Limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		if m.limiter == nil || !m.cfg.Enabled || c == nil || c.Sender() == nil {
			return next(c)
		}

		userID := c.Sender().ID
		if lo.Contains(m.cfg.Whitelist, userID) {
			return next(c)
		}

		ctx := handlers.Context(c)
		result, err := m.limiter.Check(ctx, fmt.Sprintf("user:%d", userID), m.cfg.Limit, m.cfg.Window)
		if err != nil {
			m.log.WarnContext(ctx, "rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.WarnContext(ctx, "rate limit exceeded",
				slog.Int64("user_id", userID),
				slog.String("command", CommandName(c)),
				slog.Time("reset_at", result.ResetAt),
			)
			return c.Send(RateLimitMessage)
		}

		return next(c)
	}
}
