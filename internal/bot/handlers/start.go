package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/domain"
	"github.com/Proton-105/starter-bot/internal/user"
)

// UserStarter resolves the sender and announces that they started the bot.
type UserStarter interface {
	Start(ctx context.Context, profile user.Profile, source string) (*domain.User, error)
}

// NewStartHandler handles /start: the sender is registered and a UserStarted fact is published.
// Failures are returned so the error handling middleware can answer the chat.
func NewStartHandler(starter UserStarter, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		profile := user.Profile{
			TelegramID: sender.ID,
			Username:   sender.Username,
			FirstName:  sender.FirstName,
			LastName:   sender.LastName,
		}

		started, err := starter.Start(Context(c), profile, user.SourceTelegram)
		if err != nil {
			return fmt.Errorf("start user %d: %w", sender.ID, err)
		}

		return c.Send(welcomeText(started))
	}
}

// NewHintHandler answers plain text and unknown commands with a pointer to /start.
func NewHintHandler() Handler {
	return func(c telebot.Context) error {
		return c.Send(HintText)
	}
}

// HintText is sent for anything the bot does not understand.
const HintText = "Send /start to begin."

func welcomeText(u *domain.User) string {
	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	if name == "" {
		return "Welcome! You are all set."
	}
	return fmt.Sprintf("Welcome, %s! You are all set.", name)
}
