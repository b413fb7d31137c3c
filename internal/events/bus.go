package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/Proton-105/starter-bot/pkg/logger"
	"github.com/Proton-105/starter-bot/pkg/metrics"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// ErrBusClosed is returned by Publish once Close has been called.
var ErrBusClosed = errors.New("event bus is closed")

// Options sizes the asynchronous dispatch pool.
type Options struct {
	Workers   int
	QueueSize int
}

type subscription struct {
	id      uint64
	name    string
	handler Handler
	mode    DispatchMode
}

type task struct {
	ctx  context.Context
	sub  subscription
	fact Fact
}

// Bus is a process-wide publish/subscribe channel. Create it with NewBus and release it with Close.
type Bus struct {
	log *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	closed bool

	queue     chan task
	workers   conc.WaitGroup
	closeOnce sync.Once
	drained   chan struct{}
}

// NewBus starts the worker pool that serves asynchronous handlers.
func NewBus(log *slog.Logger, opts Options) *Bus {
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	b := &Bus{
		log:     log,
		subs:    make(map[string][]subscription),
		queue:   make(chan task, opts.QueueSize),
		drained: make(chan struct{}),
	}

	for i := 0; i < opts.Workers; i++ {
		b.workers.Go(b.work)
	}

	return b
}

// Subscribe registers handler for topic and returns a function that removes it again.
func (b *Bus) Subscribe(topic, name string, handler Handler, mode DispatchMode) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, name: name, handler: handler, mode: mode})
	b.mu.Unlock()

	b.log.Debug("event handler subscribed",
		slog.String("topic", topic),
		slog.String("handler", name),
		slog.String("mode", mode.String()),
	)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

// Publish delivers fact to every handler currently subscribed to its topic. Synchronous handler
// errors are joined and returned; asynchronous handlers are queued and never awaited.
func (b *Bus) Publish(ctx context.Context, fact Fact) error {
	if fact == nil {
		return errors.New("publish: nil fact")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	topic := fact.Topic()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}

	subs := b.subs[topic]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return nil
	}

	metrics.RecordEventPublished(topic)

	inline := make([]subscription, 0, len(subs))
	detached := context.WithoutCancel(ctx)
	for _, sub := range subs {
		if sub.mode != DispatchAsync {
			inline = append(inline, sub)
			continue
		}
		b.enqueueLocked(task{ctx: detached, sub: sub, fact: fact})
	}
	b.mu.RUnlock()

	var errs []error
	for _, sub := range inline {
		if err := b.invoke(ctx, sub, fact); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", sub.name, err))
		}
	}

	return errors.Join(errs...)
}

// Close stops accepting facts, lets the workers drain queued deliveries and waits for them
// until ctx expires.
func (b *Bus) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()

		go func() {
			b.workers.Wait()
			close(b.drained)
		}()
	})

	select {
	case <-b.drained:
		b.log.Info("event bus drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain event bus: %w", ctx.Err())
	}
}

// enqueueLocked must be called with b.mu held so the queue cannot be closed concurrently.
func (b *Bus) enqueueLocked(t task) {
	select {
	case b.queue <- t:
	default:
		topic := t.fact.Topic()
		metrics.RecordEventDropped(topic)
		b.log.WarnContext(t.ctx, "event dispatch queue full, dropping delivery",
			slog.String("topic", topic),
			slog.String("handler", t.sub.name),
		)
	}
}

func (b *Bus) work() {
	for t := range b.queue {
		// failures are already logged and counted by invoke
		_ = b.invoke(t.ctx, t.sub, t.fact)
	}
}

func (b *Bus) invoke(ctx context.Context, sub subscription, fact Fact) (err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		err = sub.handler.Handle(ctx, fact)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
	}

	topic := fact.Topic()
	mode := sub.mode.String()
	if err == nil {
		metrics.RecordEventHandled(topic, mode, "ok")
		return nil
	}

	metrics.RecordEventHandled(topic, mode, "error")
	attrs := []any{
		slog.String("topic", topic),
		slog.String("handler", sub.name),
		slog.String("mode", mode),
		slog.Any("error", err),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}
	b.log.ErrorContext(ctx, "event handler failed", attrs...)

	return err
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, topic)
		} else {
			b.subs[topic] = next
		}
		return
	}
}
