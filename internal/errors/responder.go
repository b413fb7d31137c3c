package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Proton-105/starter-bot/pkg/logger"
	"github.com/Proton-105/starter-bot/pkg/metrics"
)

// InternalErrorMessage replaces the detail of every non-argument failure in HTTP responses.
const InternalErrorMessage = "An internal error occurred"

// Response is the body written for every failed HTTP request.
type Response struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}

// HandlerFunc is an HTTP handler that reports failure through its return value.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Responder is the terminal HTTP error boundary: argument failures become 400 with their own
// message, everything else becomes 500 with a fixed message while the detail is only logged.
type Responder struct {
	log           *slog.Logger
	sentryEnabled bool
	now           func() time.Time
}

func NewResponder(log *slog.Logger, sentryEnabled bool) *Responder {
	if log == nil {
		log = slog.Default()
	}

	return &Responder{
		log:           log,
		sentryEnabled: sentryEnabled,
		now:           time.Now,
	}
}

// Respond writes the error response for err.
func (rs *Responder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	if IsInvalidArgument(err) {
		rs.log.WarnContext(ctx, "rejected invalid request", attrs...)
		rs.Write(w, http.StatusBadRequest, argumentMessage(err))
		return
	}

	rs.log.ErrorContext(ctx, "request failed", attrs...)
	captureException(rs.sentryEnabled, err)
	rs.Write(w, http.StatusInternalServerError, InternalErrorMessage)
}

// Write sends a Response with status and message.
func (rs *Responder) Write(w http.ResponseWriter, status int, message string) {
	metrics.RecordHTTPError(status)

	body := Response{
		Timestamp: rs.now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.log.Error("failed to encode error response", slog.Any("error", err))
	}
}

// Wrap adapts fn to http.HandlerFunc, routing its error through Respond.
func (rs *Responder) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			rs.Respond(w, r, err)
		}
	}
}

// Recover converts panics raised further down the chain into 500 responses.
func (rs *Responder) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			rs.log.ErrorContext(r.Context(), "panic recovered in http handler",
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			rs.Respond(w, r, NewInternalError(fmt.Errorf("panic: %v", recovered)))
		}()

		next.ServeHTTP(w, r)
	})
}
