package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/pkg/config"
	"github.com/Proton-105/starter-bot/pkg/metrics"
)

// ErrUsernameMismatch is returned when the token belongs to a bot other than the configured one.
var ErrUsernameMismatch = stdErrors.New("bot username mismatch")

// Registrar registers the bot client with the messaging platform.
type Registrar interface {
	Register(ctx context.Context, client *Client) error
}

// TelegramRegistrar verifies the token, publishes the command list and starts update processing.
type TelegramRegistrar struct {
	log *slog.Logger
}

func NewTelegramRegistrar(log *slog.Logger) *TelegramRegistrar {
	if log == nil {
		log = slog.Default()
	}

	return &TelegramRegistrar{log: log}
}

// Register performs the registration steps in order and stops at the first failure.
func (r *TelegramRegistrar) Register(ctx context.Context, client *Client) error {
	if err := r.register(ctx, client); err != nil {
		metrics.RecordBotRegistration("error")
		return err
	}

	metrics.RecordBotRegistration("ok")
	return nil
}

func (r *TelegramRegistrar) register(ctx context.Context, client *Client) error {
	if client == nil || client.telebot == nil {
		return errors.NewInternalError(stdErrors.New("bot client is not configured"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	me, err := client.fetchMe()
	if err != nil {
		return errors.NewExternalAPIError("telegram getMe", err)
	}

	expected := strings.TrimPrefix(client.Username(), "@")
	if !strings.EqualFold(me.Username, expected) {
		return fmt.Errorf("%w: token belongs to @%s, configured @%s", ErrUsernameMismatch, me.Username, expected)
	}
	client.telebot.Me = me

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := client.telebot.SetCommands(Commands); err != nil {
		return errors.NewExternalAPIError("telegram setMyCommands", err)
	}

	if client.Mode() == config.BotModeWebhook {
		if err := r.setWebhook(client); err != nil {
			return err
		}
	} else if err := client.telebot.RemoveWebhook(); err != nil {
		return errors.NewExternalAPIError("telegram deleteWebhook", err)
	}

	if err := ctx.Err(); err != nil {
		if client.webhook != nil {
			client.webhook.release()
		}
		return err
	}
	client.Start()

	r.log.Info("telegram bot registered",
		slog.String("username", me.Username),
		slog.Int64("bot_id", me.ID),
		slog.Int("commands", len(Commands)),
	)
	return nil
}

// setWebhook binds the webhook listener first so a taken port fails before Telegram is told to push updates.
func (r *TelegramRegistrar) setWebhook(client *Client) error {
	if client.webhook == nil {
		return errors.NewInternalError(stdErrors.New("webhook poller is not configured"))
	}
	if err := client.webhook.bind(); err != nil {
		return errors.NewInternalError(err)
	}

	if err := client.telebot.SetWebhook(client.webhookEndpoint()); err != nil {
		client.webhook.release()
		return errors.NewExternalAPIError("telegram setWebhook", err)
	}

	r.log.Info("telegram webhook set",
		slog.String("url", client.cfg.WebhookURL),
		slog.String("listen", client.webhook.Addr().String()),
	)
	return nil
}
