package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/starter-bot/internal/lifecycle"
	"github.com/Proton-105/starter-bot/pkg/config"
)

// RegistrationHookName identifies the hook in startup logs.
const RegistrationHookName = "bot.registration"

// RegistrationHook registers the bot client once during startup. A failure aborts startup.
type RegistrationHook struct {
	client    *Client
	registrar Registrar
	profile   string
	log       *slog.Logger
}

func NewRegistrationHook(profile string, client *Client, registrar Registrar, log *slog.Logger) *RegistrationHook {
	if log == nil {
		log = slog.Default()
	}

	return &RegistrationHook{
		client:    client,
		registrar: registrar,
		profile:   profile,
		log:       log,
	}
}

// Run registers the bot. Under the test profile it only logs that it was skipped.
func (h *RegistrationHook) Run(ctx context.Context) error {
	if h.profile == config.ProfileTest {
		h.log.Info("skipping bot registration", slog.String("profile", h.profile))
		return nil
	}

	if err := h.registrar.Register(ctx, h.client); err != nil {
		h.log.Error("bot registration failed",
			slog.String("username", h.client.Username()),
			slog.Any("error", err),
		)
		return fmt.Errorf("register bot @%s: %w", h.client.Username(), err)
	}

	return nil
}

// StartupHook adapts the hook for lifecycle.Startup.
func (h *RegistrationHook) StartupHook() lifecycle.StartupHook {
	return lifecycle.StartupHook{
		Name:         RegistrationHookName,
		SkipProfiles: []string{config.ProfileTest},
		Fn:           h.Run,
	}
}
