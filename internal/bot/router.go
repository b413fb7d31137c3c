package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
)

// Router dispatches text updates to command handlers through a shared middleware chain.
type Router struct {
	log *slog.Logger

	mu          sync.RWMutex
	commands    map[string]handlers.Handler
	fallback    handlers.Handler
	middlewares []handlers.Middleware
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		log:      log,
		commands: make(map[string]handlers.Handler),
	}
}

// RegisterCommand registers a handler for a bot command such as "/start".
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// Use appends a middleware; the first registered one runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the handler for plain text and unknown commands.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	h, chain := r.resolve(c.Text())
	if h == nil {
		return nil
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if h = chain[i](h); h == nil {
			return nil
		}
	}
	return h(c)
}

// resolve picks the handler for text and snapshots the middleware chain under one lock.
func (r *Router) resolve(text string) (handlers.Handler, []handlers.Middleware) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := r.fallback
	if cmd, ok := commandOf(text); ok {
		if registered, found := r.commands[cmd]; found {
			h = registered
		} else {
			r.log.Debug("no command handler found", slog.String("command", cmd))
		}
	}

	return h, append([]handlers.Middleware(nil), r.middlewares...)
}

// commandOf extracts "/start" from "/start@my_bot payload".
func commandOf(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}

	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd, true
}
