package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/Proton-105/starter-bot/internal/domain"
	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/user"
)

const maxBodyBytes = 1 << 16

// UserStarter resolves a user and announces that they started the bot.
type UserStarter interface {
	Start(ctx context.Context, profile user.Profile, source string) (*domain.User, error)
}

// StartedRequest is the body of POST /v1/users/started.
type StartedRequest struct {
	TelegramID int64  `json:"id" validate:"required,gt=0"`
	Username   string `json:"username" validate:"omitempty,max=33"`
	FirstName  string `json:"first_name" validate:"omitempty,max=64"`
	LastName   string `json:"last_name" validate:"omitempty,max=64"`
}

// StartedResponse acknowledges an accepted start.
type StartedResponse struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

type usersHandler struct {
	starter  UserStarter
	validate *validator.Validate
	log      *slog.Logger
}

func newUsersHandler(starter UserStarter, log *slog.Logger) *usersHandler {
	return &usersHandler{
		starter:  starter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// Started handles POST /v1/users/started.
func (h *usersHandler) Started(w http.ResponseWriter, r *http.Request) error {
	if h.starter == nil {
		return errors.NewInternalError(fmt.Errorf("user starter is not configured"))
	}

	var req StartedRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return errors.NewValidationError(fmt.Sprintf("malformed request body: %v", err))
	}

	if err := h.validate.Struct(req); err != nil {
		return err
	}

	started, err := h.starter.Start(r.Context(), user.Profile{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	}, user.SourceHTTP)
	if err != nil {
		return fmt.Errorf("start user %d: %w", req.TelegramID, err)
	}

	h.log.InfoContext(r.Context(), "user started over http",
		slog.Int64("user_id", started.ID),
		slog.Int64("telegram_id", started.TelegramID),
	)

	writeJSON(w, r, h.log, http.StatusAccepted, StartedResponse{
		ID:         started.ID,
		TelegramID: started.TelegramID,
		Username:   started.Username,
		CreatedAt:  started.CreatedAt,
	})
	return nil
}
