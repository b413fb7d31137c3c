// Package events implements the in-process publish/subscribe bus.
package events

import (
	"context"
	"time"

	"github.com/Proton-105/starter-bot/internal/domain"
)

// TopicUserStarted is published when a user issues /start or is started through the API.
const TopicUserStarted = "user.started"

// Fact is an immutable record of something that happened.
type Fact interface {
	Topic() string
}

// UserStarted records that a user started the bot. Source names the publisher ("telegram", "http").
type UserStarted struct {
	User       domain.User
	Source     string
	OccurredAt time.Time
}

// NewUserStarted stamps the fact with the current UTC time.
func NewUserStarted(user domain.User, source string) UserStarted {
	return UserStarted{
		User:       user,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}
}

func (UserStarted) Topic() string { return TopicUserStarted }

// Handler consumes facts published on a topic.
type Handler interface {
	Handle(ctx context.Context, fact Fact) error
}

// HandlerFunc adapts ordinary functions to the Handler interface.
type HandlerFunc func(ctx context.Context, fact Fact) error

// Handle executes the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, fact Fact) error {
	return f(ctx, fact)
}

// DispatchMode selects whether a handler runs on the publisher's goroutine.
type DispatchMode int

const (
	// DispatchSync runs the handler inline; its error is returned to the publisher.
	DispatchSync DispatchMode = iota
	// DispatchAsync hands the fact to the worker pool; the publisher never waits and never sees failures.
	DispatchAsync
)

func (m DispatchMode) String() string {
	if m == DispatchAsync {
		return "async"
	}
	return "sync"
}
