package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/lifecycle"
	"github.com/Proton-105/starter-bot/internal/middleware"
	"github.com/Proton-105/starter-bot/pkg/logger"
)

// Deps bundles what the HTTP surface needs.
type Deps struct {
	Log       *slog.Logger
	Responder *errors.Responder
	Probes    *lifecycle.Probes
	Starter   UserStarter
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	rs := deps.Responder
	if rs == nil {
		rs = errors.NewResponder(log, false)
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.New(log))
	r.Use(rs.Recover)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		rs.Write(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rs.Write(w, http.StatusMethodNotAllowed, "method "+r.Method+" is not allowed")
	})

	health := newHealthHandler(deps.Probes, log)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	users := newUsersHandler(deps.Starter, log)
	r.Route("/v1/users", func(r chi.Router) {
		r.Post("/started", rs.Wrap(users.Started))
	})

	return r
}
