package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
	"github.com/Proton-105/starter-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(CommandName(c), status, time.Since(start))

		return err
	}
}

// CommandName returns the bare command of the update ("/start" for "/start@bot ref"), or "text".
func CommandName(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	fields := strings.Fields(c.Text())
	if len(fields) == 0 {
		return "unknown"
	}
	if !strings.HasPrefix(fields[0], "/") {
		return "text"
	}

	command, _, _ := strings.Cut(fields[0], "@")
	return command
}
