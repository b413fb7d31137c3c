package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	telebot "gopkg.in/telebot.v3"
)

const webhookShutdownTimeout = 5 * time.Second

// webhookPoller feeds updates posted by Telegram into the bot.
// The listener is bound by the registrar before setWebhook is called, so Poll
// never talks to the Bot API and a taken port fails registration instead of a goroutine.
type webhookPoller struct {
	listen string
	log    *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

func newWebhookPoller(listen string, log *slog.Logger) *webhookPoller {
	return &webhookPoller{listen: listen, log: log}
}

// bind opens the listen address. Calling it twice keeps the first listener.
func (p *webhookPoller) bind() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", p.listen)
	if err != nil {
		return fmt.Errorf("listen webhook on %s: %w", p.listen, err)
	}
	p.listener = ln
	return nil
}

// release closes a listener that never got handed to Poll.
func (p *webhookPoller) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		_ = p.listener.Close()
		p.listener = nil
	}
}

// Addr reports the bound address, or nil before bind.
func (p *webhookPoller) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Poll serves webhook requests until stop is closed by telebot.Bot.Start.
func (p *webhookPoller) Poll(_ *telebot.Bot, dest chan telebot.Update, stop chan struct{}) {
	p.mu.Lock()
	ln := p.listener
	p.listener = nil
	p.mu.Unlock()

	if ln == nil {
		p.log.Error("webhook poller started without a listener")
		<-stop
		return
	}

	srv := &http.Server{
		Handler:           p.handler(dest, stop),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			p.log.Error("webhook server shutdown failed", slog.Any("error", err))
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.log.Error("webhook server stopped", slog.Any("error", err))
	}
	<-done
}

func (p *webhookPoller) handler(dest chan telebot.Update, stop chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update telebot.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			p.log.Warn("cannot decode webhook update", slog.Any("error", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		select {
		case dest <- update:
		case <-stop:
		case <-r.Context().Done():
		}
	})
}
