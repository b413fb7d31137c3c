package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/starter-bot/internal/testutil"
)

func TestShutdown_RunsPhasesInOrder(t *testing.T) {
	shutdown := NewShutdown(testutil.DiscardLogger())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	shutdown.Register("database", PhaseStorage, record("database"))
	shutdown.Register("bus", PhaseDispatch, record("bus"))
	shutdown.Register("http", PhaseIngress, record("http"))
	shutdown.Register("bot", PhaseIngress, record("bot"))
	shutdown.Register("nil", PhaseIngress, nil)

	require.NoError(t, shutdown.Execute(context.Background()))

	require.Len(t, order, 4)
	assert.ElementsMatch(t, []string{"http", "bot"}, order[:2])
	assert.Equal(t, []string{"bus", "database"}, order[2:])
}

func TestShutdown_CollectsErrorsAndContinues(t *testing.T) {
	shutdown := NewShutdown(testutil.DiscardLogger())
	boom := errors.New("boom")

	storageClosed := false
	shutdown.Register("http", PhaseIngress, func(context.Context) error { return boom })
	shutdown.Register("database", PhaseStorage, func(context.Context) error {
		storageClosed = true
		return nil
	})

	err := shutdown.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "http")
	assert.True(t, storageClosed)
}
