package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Proton-105/starter-bot/internal/lifecycle"
)

type healthHandler struct {
	probes *lifecycle.Probes
	log    *slog.Logger
}

func newHealthHandler(probes *lifecycle.Probes, log *slog.Logger) *healthHandler {
	return &healthHandler{probes: probes, log: log}
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Healthz handles GET /healthz.
func (h *healthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.probes != nil {
		if err := h.probes.Liveness(r.Context()); err != nil {
			writeJSON(w, r, h.log, http.StatusServiceUnavailable, probeResponse{Status: "down", Error: err.Error()})
			return
		}
	}

	writeJSON(w, r, h.log, http.StatusOK, probeResponse{Status: "ok"})
}

// Readyz handles GET /readyz.
func (h *healthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.probes == nil {
		writeJSON(w, r, h.log, http.StatusServiceUnavailable, probeResponse{Status: "unavailable", Error: "probes not configured"})
		return
	}

	checks, err := h.probes.Readiness(r.Context())
	if err != nil {
		h.log.WarnContext(r.Context(), "readiness probe failed", slog.Any("error", err))
		writeJSON(w, r, h.log, http.StatusServiceUnavailable, probeResponse{Status: "unavailable", Checks: checks, Error: err.Error()})
		return
	}

	writeJSON(w, r, h.log, http.StatusOK, probeResponse{Status: "ok", Checks: checks})
}

func writeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.ErrorContext(r.Context(), "failed to encode response", slog.Int("status", status), slog.Any("error", err))
	}
}
