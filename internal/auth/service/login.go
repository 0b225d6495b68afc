package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/cryptox"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

// DefaultLoginRedirect is where a successful login lands when the caller did
// not ask for a specific callback.
const DefaultLoginRedirect = "/dashboard"

type LoginInput struct {
	Email    string
	Password string
	IP       string
	// Callback, when set, overrides the default post-login redirect.
	Callback string
}

type LoginResult struct {
	User       domain.User
	Token      string
	ExpiresAt  time.Time
	RedirectTo string
}

// Login authenticates an email/password pair and mints a session.
//
// Failures are deliberately uniform: a missing account and a wrong password
// both come back as ErrInvalidCredentials (wrapped with the remaining-attempt
// count), so the endpoint cannot be used to enumerate accounts. Account-state
// refusals (blocked, unverified, inactive) are distinct, user-actionable, and
// checked before the password so the holder sees them regardless of what they
// typed.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return LoginResult{}, invalidField("email", "is required")
	}
	if in.Password == "" {
		return LoginResult{}, invalidField("password", "is required")
	}

	key := ratelimit.Key("login", email, in.IP)
	if err := s.checkLimit(ctx, key, ratelimit.PolicyLogin); err != nil {
		return LoginResult{}, err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the hash cost anyway so a missing account is not
			// distinguishable by response time.
			_ = cryptox.VerifyPassword(in.Password, cryptox.DummyPasswordHash)
			return LoginResult{}, s.recordFailure(ctx, key, ratelimit.PolicyLogin)
		}
		return LoginResult{}, err
	}

	// Account-state refusals come before the password comparison: a
	// suspended or unverified account is told so outright, without burning
	// limiter attempts on credential guesses against it.
	switch {
	case u.IsBlocked:
		return LoginResult{}, ErrAccountBlocked
	case !u.Verified():
		return LoginResult{}, ErrEmailNotVerified
	case !u.IsActive:
		return LoginResult{}, ErrAccountInactive
	}

	if err := cryptox.VerifyPassword(in.Password, u.PasswordHash); err != nil {
		l.Info("login failed", slog.String("user_id", u.ID))
		return LoginResult{}, s.recordFailure(ctx, key, ratelimit.PolicyLogin)
	}

	token, expiresAt, err := s.Sessions.Mint(u)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.Limiter.Clear(ctx, key); err != nil {
		l.Warn("failed to clear login limiter", slog.Any("error", err))
	}

	redirect := in.Callback
	if redirect == "" {
		redirect = DefaultLoginRedirect
	}

	l.Info("login succeeded", slog.String("user_id", u.ID))

	return LoginResult{
		User:       u,
		Token:      token,
		ExpiresAt:  expiresAt,
		RedirectTo: redirect,
	}, nil
}
