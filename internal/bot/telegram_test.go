package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/testutil"
	"github.com/Proton-105/starter-bot/pkg/config"
)

const testToken = "123456:TEST"

// fakeTelegram serves the subset of the Bot API the client uses and records the calls.
type fakeTelegram struct {
	mu       sync.Mutex
	calls    []string
	username string
	failures map[string]string
	sent     []string
	server   *httptest.Server
}

func newFakeTelegram(t *testing.T, username string) *fakeTelegram {
	t.Helper()

	f := &fakeTelegram{username: username, failures: make(map[string]string)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTelegram) fail(method, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = description
}

func (f *fakeTelegram) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTelegram) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	if method != "getUpdates" {
		f.calls = append(f.calls, method)
	}
	failure, failed := f.failures[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failed {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 401, "description": failure})
		return
	}

	var result any = true
	switch method {
	case "getMe":
		result = map[string]any{"id": 42, "is_bot": true, "first_name": "Starter", "username": f.username}
	case "getUpdates":
		time.Sleep(10 * time.Millisecond)
		result = []any{}
	case "sendMessage":
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.sent = append(f.sent, payload["text"].(string))
		f.mu.Unlock()
		result = map[string]any{"message_id": 1, "date": 0, "chat": map[string]any{"id": 7, "type": "private"}}
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func newTestClient(t *testing.T, api *fakeTelegram, starter handlers.UserStarter) *Client {
	t.Helper()

	cfg := config.BotConfig{
		Token:    testToken,
		Username: "starter_bot",
		Mode:     config.BotModeLongPolling,
		Timeout:  time.Second,
		APIURL:   api.server.URL,
	}

	log := testutil.DiscardLogger()
	client, err := New(cfg, log, errors.NewHandler(log, false), starter)
	require.NoError(t, err)
	return client
}

func newWebhookTestClient(t *testing.T, api *fakeTelegram, listen string, starter handlers.UserStarter) *Client {
	t.Helper()

	cfg := config.BotConfig{
		Token:         testToken,
		Username:      "starter_bot",
		Mode:          config.BotModeWebhook,
		APIURL:        api.server.URL,
		WebhookListen: listen,
		WebhookURL:    "https://bot.example.com/telegram",
	}

	log := testutil.DiscardLogger()
	client, err := New(cfg, log, errors.NewHandler(log, false), starter)
	require.NoError(t, err)
	return client
}

func textUpdate(text string) telebot.Update {
	return telebot.Update{
		ID: 1,
		Message: &telebot.Message{
			ID:     1,
			Text:   text,
			Sender: &telebot.User{ID: 7, Username: "alice", FirstName: "Alice"},
			Chat:   &telebot.Chat{ID: 7, Type: telebot.ChatPrivate},
		},
	}
}
