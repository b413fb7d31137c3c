package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Proton-105/starter-bot/internal/domain"
	apperrors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/events"
	"github.com/Proton-105/starter-bot/internal/repository"
	"github.com/Proton-105/starter-bot/internal/usercache"
)

// Sources of UserStarted facts.
const (
	SourceTelegram = "telegram"
	SourceHTTP     = "http"
)

// Profile is the identity a user presents when starting the bot.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// Publisher publishes facts to interested handlers.
type Publisher interface {
	Publish(ctx context.Context, fact events.Fact) error
}

// Service provides business operations over users.
type Service struct {
	repo      repository.UserRepository
	cache     *usercache.Cache
	publisher Publisher
	log       *slog.Logger
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache *usercache.Cache, publisher Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, cache: cache, publisher: publisher, log: log}
}

// Start resolves the user behind profile, creating the record on first contact, and publishes
// a UserStarted fact attributed to source.
func (s *Service) Start(ctx context.Context, profile Profile, source string) (*domain.User, error) {
	if profile.TelegramID <= 0 {
		return nil, apperrors.NewValidationError("telegram_id must be a positive integer")
	}
	profile.Username = strings.TrimPrefix(strings.TrimSpace(profile.Username), "@")

	user, err := s.getOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.NewUserStarted(*user, source)); err != nil {
		s.logError(ctx, "start.publish", profile.TelegramID, err)
		return nil, fmt.Errorf("publish user started: %w", err)
	}

	return user, nil
}

func (s *Service) getOrCreate(ctx context.Context, profile Profile) (*domain.User, error) {
	cached, err := s.cache.Get(ctx, profile.TelegramID)
	if err != nil {
		// cache trouble degrades to a database read
		s.logError(ctx, "start.cache_get", profile.TelegramID, err)
	}
	if cached != nil {
		changed, err := s.refreshUsername(ctx, cached, profile.Username)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := s.cache.Set(ctx, cached); err != nil {
				s.logError(ctx, "start.cache_set", profile.TelegramID, err)
			}
		}
		return cached, nil
	}

	user, err := s.repo.FindByTelegramID(ctx, profile.TelegramID)
	switch {
	case err == nil:
		if _, err := s.refreshUsername(ctx, user, profile.Username); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrUserNotFound):
		user = &domain.User{
			TelegramID: profile.TelegramID,
			Username:   profile.Username,
			FirstName:  profile.FirstName,
			LastName:   profile.LastName,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			s.logError(ctx, "start.create", profile.TelegramID, err)
			return nil, apperrors.NewDatabaseError(err)
		}
		s.log.InfoContext(ctx, "created new user", slog.Int64("telegram_id", user.TelegramID), slog.Int64("user_id", user.ID))
	default:
		s.logError(ctx, "start.find", profile.TelegramID, err)
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.logError(ctx, "start.cache_set", profile.TelegramID, err)
	}

	return user, nil
}

// refreshUsername persists a changed username. An empty username keeps the stored one.
// When the write fails the cache entry is dropped so the next start reads the database again.
func (s *Service) refreshUsername(ctx context.Context, user *domain.User, username string) (bool, error) {
	if username == "" || username == user.Username {
		return false, nil
	}

	if err := s.repo.UpdateUsername(ctx, user.TelegramID, username); err != nil {
		s.logError(ctx, "start.update_username", user.TelegramID, err)
		if err := s.cache.Invalidate(ctx, user.TelegramID); err != nil {
			s.logError(ctx, "start.cache_invalidate", user.TelegramID, err)
		}
		return false, apperrors.NewDatabaseError(err)
	}

	s.log.InfoContext(ctx, "username changed",
		slog.Int64("telegram_id", user.TelegramID),
		slog.String("previous", user.Username),
		slog.String("username", username),
	)
	user.Username = username

	return true, nil
}

func (s *Service) logError(ctx context.Context, operation string, telegramID int64, err error) {
	if err == nil {
		return
	}

	s.log.ErrorContext(ctx, "user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
