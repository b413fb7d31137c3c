package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/middleware"
	"github.com/Proton-105/starter-bot/pkg/config"
)

// Client wraps telebot.Bot together with the descriptor it is expected to register as.
// Construction never talks to Telegram; Registrar does that during startup.
type Client struct {
	telebot *telebot.Bot
	cfg     config.BotConfig
	log     *slog.Logger
	router  *Router
	webhook *webhookPoller
	started atomic.Bool
}

// New builds a bot client configured according to the application settings.
func New(cfg config.BotConfig, log *slog.Logger, errHandler *errors.Handler, starter handlers.UserStarter) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Offline: true,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	var webhook *webhookPoller
	if cfg.Mode == config.BotModeWebhook {
		webhook = newWebhookPoller(cfg.WebhookListen, log)
		settings.Poller = webhook
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	router := NewRouter(log)
	router.Use(RecoveryMiddleware(log, errHandler))
	router.Use(ErrorHandlingMiddleware(log, errHandler))
	router.Use(LoggingMiddleware(log))
	router.Use(middleware.Metrics)

	if starter != nil {
		router.RegisterCommand(CommandStart, handlers.NewStartHandler(starter, log))
	}
	router.SetDefault(handlers.NewHintHandler())

	tb.Handle(telebot.OnText, router.Route)

	return &Client{
		telebot: tb,
		cfg:     cfg,
		log:     log,
		router:  router,
		webhook: webhook,
	}, nil
}

// Username is the configured public username the bot must register as.
func (c *Client) Username() string {
	if c == nil {
		return ""
	}
	return c.cfg.Username
}

// Mode reports the configured update delivery mode.
func (c *Client) Mode() string {
	return c.cfg.Mode
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (c *Client) Telebot() *telebot.Bot {
	return c.telebot
}

// Router exposes the command router.
func (c *Client) Router() *Router {
	return c.router
}

// Start launches update processing in the background. Subsequent calls are no-ops.
func (c *Client) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}

	c.log.Info("starting telegram bot", slog.String("username", c.cfg.Username), slog.String("mode", c.cfg.Mode))
	go c.telebot.Start()
}

// Stop stops update processing, giving up when ctx is done.
func (c *Client) Stop(ctx context.Context) error {
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}

	c.log.Info("stopping telegram bot...")

	done := make(chan struct{})
	go func() {
		c.telebot.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop telegram bot: %w", ctx.Err())
	}
}

// webhookEndpoint is what setWebhook announces to Telegram.
func (c *Client) webhookEndpoint() *telebot.Webhook {
	return &telebot.Webhook{
		Endpoint: &telebot.WebhookEndpoint{PublicURL: c.cfg.WebhookURL},
	}
}

// fetchMe asks Telegram which bot the configured token belongs to.
func (c *Client) fetchMe() (*telebot.User, error) {
	data, err := c.telebot.Raw("getMe", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result *telebot.User `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode getMe response: %w", err)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("getMe returned no bot")
	}

	return resp.Result, nil
}
