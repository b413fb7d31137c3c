// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/Proton-105/starter-bot/pkg/redis"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRedis starts an in-memory Redis server and returns a connected client closed on cleanup.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), redis.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

// Record is a flattened log record captured by LogRecorder.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is a slog.Handler that keeps every record in memory.
type LogRecorder struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

// NewLogRecorder returns a recorder together with a logger writing into it.
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	rec := &LogRecorder{mu: &sync.Mutex{}, records: &[]Record{}}
	return rec, slog.New(rec)
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, record.NumAttrs()+len(r.attrs))
	for _, attr := range r.attrs {
		attrs[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.records = append(*r.records, Record{Level: record.Level, Message: record.Message, Attrs: attrs})
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	next = append(next, r.attrs...)
	next = append(next, attrs...)
	return &LogRecorder{mu: r.mu, records: r.records, attrs: next}
}

// WithGroup is not needed by the tests; groups are flattened.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns a snapshot of captured records with the given message.
// An empty message returns every record.
func (r *LogRecorder) Records(message string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(*r.records))
	for _, record := range *r.records {
		if message == "" || record.Message == message {
			out = append(out, record)
		}
	}
	return out
}
