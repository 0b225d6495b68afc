package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count         int
	windowResetAt time.Time
	lockedUntil   time.Time
}

func (e *memoryEntry) locked(now time.Time) bool {
	return now.Before(e.lockedUntil)
}

func (e *memoryEntry) windowExpired(now time.Time) bool {
	return now.After(e.windowResetAt)
}

// MemoryLimiter is the default Limiter driver. State lives in one mutex-guarded
// map, so limits only hold within a single process; deployments running more
// than one replica should use the redis driver instead.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	now func() time.Time
}

// NewMemoryLimiter creates an empty in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Check reports whether an attempt against key would currently be allowed.
// It never mutates state; an expired window is treated as fresh and left for
// the next Increment to reset.
func (l *MemoryLimiter) Check(_ context.Context, key string, policy Policy) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok {
		return Result{Allowed: true, Remaining: policy.MaxAttempts}, nil
	}

	if e.locked(now) {
		return Result{RetryAfter: e.lockedUntil.Sub(now)}, nil
	}

	if e.windowExpired(now) {
		return Result{Allowed: true, Remaining: policy.MaxAttempts}, nil
	}

	remaining := policy.MaxAttempts - e.count
	if remaining <= 0 {
		return Result{RetryAfter: e.windowResetAt.Sub(now)}, nil
	}

	return Result{Allowed: true, Remaining: remaining}, nil
}

// Increment records one attempt against key, resetting the window lazily when
// it has expired and escalating to a lockout once the policy maximum is hit.
func (l *MemoryLimiter) Increment(_ context.Context, key string, policy Policy) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok || (e.windowExpired(now) && !e.locked(now)) {
		e = &memoryEntry{windowResetAt: now.Add(policy.Window)}
		l.entries[key] = e
	}

	e.count++
	if e.count >= policy.MaxAttempts && policy.Lockout > 0 && !e.locked(now) {
		e.lockedUntil = now.Add(policy.Lockout)
	}

	return nil
}

// Clear removes any entry for key.
func (l *MemoryLimiter) Clear(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, key)
	return nil
}

// Sweep evicts entries whose window has expired and which are not locked out,
// returning the number removed. The housekeeping worker calls this on a timer
// to bound memory under churny keyspaces.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	removed := 0
	for key, e := range l.entries {
		if e.windowExpired(now) && !e.locked(now) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
