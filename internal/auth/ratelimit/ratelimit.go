// Package ratelimit provides a sliding-window attempt throttle with optional
// lockout escalation. A single Limiter instance is shared by every flow; call
// sites distinguish themselves through the key convention rather than by
// owning private counters.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Policy describes one throttling rule. A zero Lockout means the key is only
// denied for the remainder of the current window once MaxAttempts is reached.
type Policy struct {
	Window      time.Duration
	MaxAttempts int
	Lockout     time.Duration
}

// Per-purpose presets. Flows pick a preset rather than inventing numbers at
// the call site so the policy for a purpose lives in exactly one place.
var (
	PolicyLogin          = Policy{Window: 15 * time.Minute, MaxAttempts: 10, Lockout: 30 * time.Minute}
	PolicyRegister       = Policy{Window: time.Hour, MaxAttempts: 5, Lockout: time.Hour}
	PolicyForgotPassword = Policy{Window: 15 * time.Minute, MaxAttempts: 3}
	PolicyResetPassword  = Policy{Window: 15 * time.Minute, MaxAttempts: 10, Lockout: 30 * time.Minute}
	PolicyChangePassword = Policy{Window: 15 * time.Minute, MaxAttempts: 5, Lockout: 30 * time.Minute}
	PolicyVerifyEmail    = Policy{Window: 15 * time.Minute, MaxAttempts: 10}
	PolicyAdminList      = Policy{Window: time.Minute, MaxAttempts: 100}
)

// Result is the outcome of a Check. RetryAfter is only meaningful when
// Allowed is false; Remaining is the number of attempts left in the window.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is the throttle contract shared by the memory and redis drivers.
//
// Check is a pure read: it never creates or mutates an entry. Increment
// records one attempt and escalates the key into a lockout when the policy's
// maximum is reached. Clear drops the key entirely, which flows call on
// success so legitimate users are not penalized for earlier failures.
type Limiter interface {
	Check(ctx context.Context, key string, policy Policy) (Result, error)
	Increment(ctx context.Context, key string, policy Policy) error
	Clear(ctx context.Context, key string) error
}

// Sweeper is implemented by drivers that hold state in-process and need
// periodic eviction of dead entries. The housekeeping worker calls it; the
// redis driver relies on key TTLs instead and does not implement it.
type Sweeper interface {
	Sweep() int
}

// Key builds a limiter key from a purpose and identity parts, e.g.
// Key("login", email, ip) -> "login:alice@example.com:203.0.113.7".
// Empty parts are skipped so call sites can pass an optional IP directly.
func Key(purpose string, parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	elems = append(elems, purpose)
	for _, p := range parts {
		if p != "" {
			elems = append(elems, p)
		}
	}
	return strings.Join(elems, ":")
}
