package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T) (*ratelimit.RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ratelimit.NewRedisLimiter(client), mr
}

func TestRedisLimiter_AllowsThenDenies(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLimiter(t)
	policy := ratelimit.Policy{Window: 15 * time.Minute, MaxAttempts: 2}

	res, err := l.Check(ctx, "login:a@b.c", policy)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 2, res.Remaining)

	require.NoError(t, l.Increment(ctx, "login:a@b.c", policy))
	require.NoError(t, l.Increment(ctx, "login:a@b.c", policy))

	res, err = l.Check(ctx, "login:a@b.c", policy)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Positive(t, res.RetryAfter)
}

func TestRedisLimiter_WindowExpiryRestores(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	policy := ratelimit.Policy{Window: 15 * time.Minute, MaxAttempts: 1}

	require.NoError(t, l.Increment(ctx, "k", policy))

	res, err := l.Check(ctx, "k", policy)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	mr.FastForward(16 * time.Minute)

	res, err = l.Check(ctx, "k", policy)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.Remaining)
}

func TestRedisLimiter_LockoutOutlastsWindow(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	policy := ratelimit.Policy{Window: 15 * time.Minute, MaxAttempts: 1, Lockout: time.Hour}

	require.NoError(t, l.Increment(ctx, "k", policy))

	// Counter expires, lock key does not.
	mr.FastForward(20 * time.Minute)

	res, err := l.Check(ctx, "k", policy)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Positive(t, res.RetryAfter)

	mr.FastForward(time.Hour)

	res, err = l.Check(ctx, "k", policy)
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestRedisLimiter_ClearRemovesLock(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLimiter(t)
	policy := ratelimit.Policy{Window: 15 * time.Minute, MaxAttempts: 1, Lockout: time.Hour}

	require.NoError(t, l.Increment(ctx, "k", policy))

	res, err := l.Check(ctx, "k", policy)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, l.Clear(ctx, "k"))

	res, err = l.Check(ctx, "k", policy)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.Remaining)
}
