package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a Limiter driver backed by Redis, for deployments with more
// than one process. Each key holds a counter with the window as its TTL plus a
// separate lock key once the maximum is reached; expiry is handled entirely by
// Redis so no sweep is needed.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter wraps an existing client. The caller owns the client's
// lifecycle.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func counterKey(key string) string { return "rl:" + key }
func lockKey(key string) string    { return "rl:" + key + ":lock" }

// Check reports whether an attempt against key would currently be allowed.
func (l *RedisLimiter) Check(ctx context.Context, key string, policy Policy) (Result, error) {
	lockTTL, err := l.client.PTTL(ctx, lockKey(key)).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: read lock ttl: %w", err)
	}
	if lockTTL > 0 {
		return Result{RetryAfter: lockTTL}, nil
	}

	raw, err := l.client.Get(ctx, counterKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return Result{Allowed: true, Remaining: policy.MaxAttempts}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: read counter: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: parse counter: %w", err)
	}

	remaining := policy.MaxAttempts - count
	if remaining <= 0 {
		windowTTL, err := l.client.PTTL(ctx, counterKey(key)).Result()
		if err != nil {
			return Result{}, fmt.Errorf("ratelimit: read counter ttl: %w", err)
		}
		if windowTTL < 0 {
			windowTTL = 0
		}
		return Result{RetryAfter: windowTTL}, nil
	}

	return Result{Allowed: true, Remaining: remaining}, nil
}

// Increment records one attempt against key. The first attempt in a window
// sets the counter's TTL; reaching the policy maximum arms the lock key.
func (l *RedisLimiter) Increment(ctx context.Context, key string, policy Policy) error {
	count, err := l.client.Incr(ctx, counterKey(key)).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: increment: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, counterKey(key), policy.Window).Err(); err != nil {
			return fmt.Errorf("ratelimit: set window ttl: %w", err)
		}
	}

	if count >= int64(policy.MaxAttempts) && policy.Lockout > 0 {
		// NX so repeated over-limit attempts do not keep extending the lockout.
		if err := l.client.SetNX(ctx, lockKey(key), "1", policy.Lockout).Err(); err != nil {
			return fmt.Errorf("ratelimit: set lock: %w", err)
		}
	}

	return nil
}

// Clear removes the counter and any lock for key.
func (l *RedisLimiter) Clear(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, counterKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit: clear: %w", err)
	}
	return nil
}

// Ping verifies the backing Redis is reachable, with a short deadline so the
// readiness probe cannot hang on a dead connection.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return l.client.Ping(ctx).Err()
}
