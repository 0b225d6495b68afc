package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is deliberately generic: login and lookup
	// failures collapse into it so callers cannot probe which accounts
	// exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Account-state failures are distinct and user-actionable, and login
	// reports them before comparing the password: the holder of a blocked
	// or unverified account is told what to fix rather than being fed a
	// generic credentials error.
	ErrAccountBlocked   = errors.New("account is blocked, contact support")
	ErrAccountInactive  = errors.New("account is not active")
	ErrEmailNotVerified = errors.New("email address has not been verified")

	ErrInvalidToken = errors.New("token is invalid or has already been used")
	ErrTokenExpired = errors.New("token has expired, request a new one")

	ErrSamePassword = errors.New("new password must differ from the current password")

	// ErrAccountExists is the single duplicate-registration message. It
	// must not distinguish whether the email or the phone number collided.
	ErrAccountExists = errors.New("an account with these details already exists")
)

// RateLimitedError carries the retry-after duration so callers can back off
// correctly instead of treating it as a generic failure.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// AttemptsRemainingError wraps ErrInvalidCredentials with the number of
// attempts left before lockout. The message stays generic; the count rides
// alongside for client UX.
type AttemptsRemainingError struct {
	Remaining int
}

func (e *AttemptsRemainingError) Error() string { return ErrInvalidCredentials.Error() }

func (e *AttemptsRemainingError) Unwrap() error { return ErrInvalidCredentials }

// ValidationError carries field-level detail. Validation happens before any
// store access, so the detail reveals nothing about account state.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "validation failed" }

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
