package bot

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/starter-bot/internal/bot/handlers"
	"github.com/Proton-105/starter-bot/internal/domain"
	"github.com/Proton-105/starter-bot/internal/user"
	"github.com/Proton-105/starter-bot/pkg/logger"
)

type recordingStarter struct {
	profiles      []user.Profile
	sources       []string
	correlationID string
	err           error
}

func (s *recordingStarter) Start(ctx context.Context, profile user.Profile, source string) (*domain.User, error) {
	s.profiles = append(s.profiles, profile)
	s.sources = append(s.sources, source)
	s.correlationID = logger.CorrelationIDFromContext(ctx)
	if s.err != nil {
		return nil, s.err
	}

	return &domain.User{ID: 1, TelegramID: profile.TelegramID, Username: profile.Username, FirstName: profile.FirstName}, nil
}

func TestClient_NewIsOffline(t *testing.T) {
	api := newFakeTelegram(t, "starter_bot")
	client := newTestClient(t, api, nil)

	assert.Empty(t, api.Calls())
	assert.Equal(t, "starter_bot", client.Username())
	assert.NotNil(t, client.Telebot())
}

func TestClient_StartCommandRegistersSender(t *testing.T) {
	api := newFakeTelegram(t, "starter_bot")
	starter := &recordingStarter{}
	client := newTestClient(t, api, starter)

	err := client.Router().Route(client.Telebot().NewContext(textUpdate("/start@starter_bot ref_1")))
	require.NoError(t, err)

	require.Len(t, starter.profiles, 1)
	assert.Equal(t, int64(7), starter.profiles[0].TelegramID)
	assert.Equal(t, "alice", starter.profiles[0].Username)
	assert.Equal(t, user.SourceTelegram, starter.sources[0])
	assert.NotEmpty(t, starter.correlationID)
	assert.Equal(t, []string{"Welcome, Alice! You are all set."}, api.Sent())
}

func TestClient_StartFailureAnswersWithUserMessage(t *testing.T) {
	api := newFakeTelegram(t, "starter_bot")
	client := newTestClient(t, api, &recordingStarter{err: stdErrors.New("db down")})

	err := client.Router().Route(client.Telebot().NewContext(textUpdate("/start")))
	require.NoError(t, err)

	assert.Equal(t, []string{"Something went wrong. Please try again later."}, api.Sent())
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	api := newFakeTelegram(t, "starter_bot")
	client := newTestClient(t, api, nil)
	client.Router().RegisterCommand("/boom", func(telebot.Context) error { panic("kaboom") })

	err := client.Router().Route(client.Telebot().NewContext(textUpdate("/boom")))
	require.NoError(t, err)

	assert.Equal(t, []string{"Something went wrong. Please try again later."}, api.Sent())
}

func TestClient_PlainTextGetsStartHint(t *testing.T) {
	api := newFakeTelegram(t, "starter_bot")
	starter := &recordingStarter{}
	client := newTestClient(t, api, starter)

	for _, text := range []string{"hello", "/help"} {
		require.NoError(t, client.Router().Route(client.Telebot().NewContext(textUpdate(text))))
	}

	assert.Empty(t, starter.profiles)
	assert.Equal(t, []string{handlers.HintText, handlers.HintText}, api.Sent())
}

func TestRouter_FallsBackToDefault(t *testing.T) {
	router := NewRouter(nil)

	var hits []string
	router.RegisterCommand("/start", func(telebot.Context) error {
		hits = append(hits, "start")
		return nil
	})
	router.SetDefault(func(telebot.Context) error {
		hits = append(hits, "default")
		return nil
	})

	tb, err := telebot.NewBot(telebot.Settings{Offline: true})
	require.NoError(t, err)

	for _, text := range []string{"/start", "hello", "/unknown"} {
		require.NoError(t, router.Route(tb.NewContext(textUpdate(text))))
	}

	assert.Equal(t, []string{"start", "default", "default"}, hits)
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	router := NewRouter(nil)

	var order []string
	for _, name := range []string{"outer", "inner"} {
		name := name
		router.Use(func(next handlers.Handler) handlers.Handler {
			return func(c telebot.Context) error {
				order = append(order, name)
				return next(c)
			}
		})
	}
	router.RegisterCommand("/start", func(telebot.Context) error {
		order = append(order, "handler")
		return nil
	})

	tb, err := telebot.NewBot(telebot.Settings{Offline: true})
	require.NoError(t, err)
	require.NoError(t, router.Route(tb.NewContext(textUpdate("/start"))))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestCommandOf(t *testing.T) {
	testCases := []struct {
		text    string
		command string
		ok      bool
	}{
		{text: "/start", command: "/start", ok: true},
		{text: "/start@starter_bot", command: "/start", ok: true},
		{text: "  /start payload", command: "/start", ok: true},
		{text: "start", ok: false},
		{text: "", ok: false},
	}

	for _, tc := range testCases {
		command, ok := commandOf(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.command, command, tc.text)
	}
}

func TestClient_StopWithoutStartIsNoop(t *testing.T) {
	api := newFakeTelegram(t, "starter_bot")
	client := newTestClient(t, api, nil)

	assert.NoError(t, client.Stop(context.Background()))
}
