// Package logger builds the slog handler chain shared by the bot and the HTTP server.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/starter-bot/pkg/config"
)

var level = new(slog.LevelVar)

// New creates a structured logger configured from cfg: JSON or text output, optional file rotation,
// sensitive value masking and error forwarding to Sentry.
func New(cfg config.Config) *slog.Logger {
	SetLevel(cfg.Logger.Level)

	return slog.New(newHandler(cfg, output(cfg.Logger))).With(slog.String("env", cfg.AppEnv))
}

// SetLevel changes the minimum level of every logger built by New.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// ParseLevel maps a textual level to slog.Level, defaulting to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(cfg config.Config, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if cfg.Logger.Format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	var handler slog.Handler = NewMaskingHandler(base)
	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError, AddSource: true}.NewSentryHandler()
		handler = slogmulti.Fanout(handler, NewMaskingHandler(sentryHandler))
	}

	return handler
}

func output(cfg config.LoggerConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}
