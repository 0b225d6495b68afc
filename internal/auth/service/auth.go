package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 100
)

// AuthService owns the authentication flows: register, login, email
// verification, and the three password flows. Every flow consults the shared
// rate limiter before touching the store, and every step is a cheap rejection
// gate for the next, more expensive one.
type AuthService struct {
	Store    store.Store
	Limiter  ratelimit.Limiter
	Tokens   *TokenService
	Sessions *SessionService
	Mailer   Mailer
}

// checkLimit is the read-only gate at the top of each flow.
func (s *AuthService) checkLimit(ctx context.Context, key string, policy ratelimit.Policy) error {
	res, err := s.Limiter.Check(ctx, key, policy)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if !res.Allowed {
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}
	return nil
}

// recordFailure counts one failed attempt and translates the limiter state
// into the caller-facing error: remaining attempts while the window has room,
// retry-after once it does not.
func (s *AuthService) recordFailure(ctx context.Context, key string, policy ratelimit.Policy) error {
	if err := s.Limiter.Increment(ctx, key, policy); err != nil {
		return fmt.Errorf("rate limit increment: %w", err)
	}

	res, err := s.Limiter.Check(ctx, key, policy)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if !res.Allowed {
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}
	return &AttemptsRemainingError{Remaining: res.Remaining}
}

func validatePassword(field, password string) error {
	// Length bounds are in characters, not bytes: "démo123" is seven
	// characters even though it encodes to eight bytes.
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return invalidField(field, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if n > maxPasswordLength {
		return invalidField(field, fmt.Sprintf("must be at most %d characters", maxPasswordLength))
	}
	return nil
}
