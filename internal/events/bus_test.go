package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/starter-bot/internal/domain"
	"github.com/Proton-105/starter-bot/internal/testutil"
	"github.com/Proton-105/starter-bot/pkg/logger"
)

func newTestBus(t *testing.T, opts Options) *Bus {
	t.Helper()

	bus := NewBus(testutil.DiscardLogger(), opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Close(ctx)
	})
	return bus
}

func alice() UserStarted {
	return NewUserStarted(domain.User{ID: 1, Username: "alice"}, "test")
}

func TestBus_PublishWithoutHandlersIsNoop(t *testing.T) {
	bus := newTestBus(t, Options{})

	assert.NoError(t, bus.Publish(context.Background(), alice()))
}

func TestBus_SyncHandlerReceivesFact(t *testing.T) {
	bus := newTestBus(t, Options{})

	var got UserStarted
	bus.Subscribe(TopicUserStarted, "capture", HandlerFunc(func(_ context.Context, fact Fact) error {
		got = fact.(UserStarted)
		return nil
	}), DispatchSync)

	require.NoError(t, bus.Publish(context.Background(), alice()))

	assert.Equal(t, int64(1), got.User.ID)
	assert.Equal(t, "alice", got.User.Username)
	assert.Equal(t, "test", got.Source)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestBus_SyncHandlerErrorIsReturned(t *testing.T) {
	bus := newTestBus(t, Options{})
	boom := errors.New("boom")

	bus.Subscribe(TopicUserStarted, "failing", HandlerFunc(func(context.Context, Fact) error {
		return boom
	}), DispatchSync)

	err := bus.Publish(context.Background(), alice())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestBus_DeliversToAllHandlers(t *testing.T) {
	bus := newTestBus(t, Options{Workers: 2})

	var calls atomic.Int32
	handler := HandlerFunc(func(context.Context, Fact) error {
		calls.Add(1)
		return nil
	})

	bus.Subscribe(TopicUserStarted, "first", handler, DispatchSync)
	bus.Subscribe(TopicUserStarted, "second", handler, DispatchAsync)
	bus.Subscribe(TopicUserStarted, "third", handler, DispatchAsync)
	bus.Subscribe("other.topic", "unrelated", handler, DispatchSync)

	require.NoError(t, bus.Publish(context.Background(), alice()))

	assert.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestBus_AsyncHandlerDoesNotBlockPublisher(t *testing.T) {
	bus := newTestBus(t, Options{Workers: 1})

	release := make(chan struct{})
	done := make(chan struct{})
	bus.Subscribe(TopicUserStarted, "slow", HandlerFunc(func(context.Context, Fact) error {
		<-release
		close(done)
		return nil
	}), DispatchAsync)

	published := make(chan error, 1)
	go func() { published <- bus.Publish(context.Background(), alice()) }()

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on asynchronous handler")
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("asynchronous handler never ran")
	}
}

func TestBus_AsyncFailuresAreNotPropagated(t *testing.T) {
	recorder, log := testutil.NewLogRecorder()
	bus := NewBus(log, Options{Workers: 1})

	bus.Subscribe(TopicUserStarted, "erroring", HandlerFunc(func(context.Context, Fact) error {
		return errors.New("smtp unavailable")
	}), DispatchAsync)
	bus.Subscribe(TopicUserStarted, "panicking", HandlerFunc(func(context.Context, Fact) error {
		panic("nil map")
	}), DispatchAsync)

	assert.NoError(t, bus.Publish(context.Background(), alice()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	failures := recorder.Records("event handler failed")
	require.Len(t, failures, 2)

	handlers := []any{failures[0].Attrs["handler"], failures[1].Attrs["handler"]}
	assert.ElementsMatch(t, []any{"erroring", "panicking"}, handlers)
}

func TestBus_AsyncHandlerKeepsContextValuesAfterCancel(t *testing.T) {
	bus := newTestBus(t, Options{Workers: 1})

	seen := make(chan string, 1)
	errCh := make(chan error, 1)
	bus.Subscribe(TopicUserStarted, "ctx", HandlerFunc(func(ctx context.Context, _ Fact) error {
		seen <- logger.CorrelationIDFromContext(ctx)
		errCh <- ctx.Err()
		return nil
	}), DispatchAsync)

	ctx, cancel := context.WithCancel(logger.WithCorrelationID(context.Background(), "corr-1"))
	require.NoError(t, bus.Publish(ctx, alice()))
	cancel()

	assert.Equal(t, "corr-1", <-seen)
	assert.NoError(t, <-errCh)
}

func TestBus_CloseDrainsQueuedDeliveries(t *testing.T) {
	bus := NewBus(testutil.DiscardLogger(), Options{Workers: 1, QueueSize: 16})

	var handled atomic.Int32
	bus.Subscribe(TopicUserStarted, "counter", HandlerFunc(func(context.Context, Fact) error {
		time.Sleep(time.Millisecond)
		handled.Add(1)
		return nil
	}), DispatchAsync)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), alice()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	assert.Equal(t, int32(10), handled.Load())
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(testutil.DiscardLogger(), Options{})
	require.NoError(t, bus.Close(context.Background()))

	err := bus.Publish(context.Background(), alice())
	assert.ErrorIs(t, err, ErrBusClosed)

	// closing twice is safe
	assert.NoError(t, bus.Close(context.Background()))
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	recorder, log := testutil.NewLogRecorder()
	bus := NewBus(log, Options{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.Subscribe(TopicUserStarted, "blocking", HandlerFunc(func(context.Context, Fact) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}), DispatchAsync)

	// first delivery occupies the worker, second fills the queue, third is dropped
	require.NoError(t, bus.Publish(context.Background(), alice()))
	<-started
	require.NoError(t, bus.Publish(context.Background(), alice()))
	require.NoError(t, bus.Publish(context.Background(), alice()))

	assert.Len(t, recorder.Records("event dispatch queue full, dropping delivery"), 1)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t, Options{})

	var calls int
	unsubscribe := bus.Subscribe(TopicUserStarted, "once", HandlerFunc(func(context.Context, Fact) error {
		calls++
		return nil
	}), DispatchSync)

	require.NoError(t, bus.Publish(context.Background(), alice()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), alice()))

	assert.Equal(t, 1, calls)
}
