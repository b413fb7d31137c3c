package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/starter-bot/internal/testutil"
)

func newTestLimiter(t *testing.T) (*RedisLimiter, *time.Time) {
	t.Helper()

	client, _ := testutil.NewRedis(t)
	limiter := NewRedisLimiter(client.Client, testutil.DiscardLogger())

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:allows", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 5-(i+1), result.Remaining)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:blocks", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, result.Allowed, "attempt %d", i)
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	limiter, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	*now = now.Add(1100 * time.Millisecond)

	result, err = limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiter_ZeroLimitRejects(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	result, err := limiter.Check(context.Background(), "test:zero", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestRedisLimiter_NilClient(t *testing.T) {
	_, err := NewRedisLimiter(nil, nil).Check(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)
}
