package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

// VerifyEmail outcomes. The flow is redirect-style: the handler turns each
// outcome into a UI redirect with a machine-readable reason code, so the
// outcome names double as those codes.
const (
	VerifyOutcomeVerified        = "verified"
	VerifyOutcomeAlreadyVerified = "already-verified"
	VerifyOutcomeRateLimited     = "rate-limited"
	VerifyOutcomeMissingToken    = "missing-token"
	VerifyOutcomeInvalidToken    = "invalid-token"
	VerifyOutcomeInvalidOrUsed   = "invalid-or-used"
	VerifyOutcomeExpired         = "expired"
	VerifyOutcomeBlocked         = "blocked"
	VerifyOutcomeServerError     = "server-error"
)

// VerifyEmailResult reports the outcome and, for the expired case, the
// account email so the UI can offer a resend.
type VerifyEmailResult struct {
	Outcome string
	Email   string
}

// VerifyEmail consumes an emailed verification token. It never returns an
// error to the caller's user; internal faults come back as the server-error
// outcome with the underlying error alongside for logging.
func (s *AuthService) VerifyEmail(ctx context.Context, token, ip string) (VerifyEmailResult, error) {
	l := slogx.FromContext(ctx)

	key := ratelimit.Key("verify-email", ip)
	res, err := s.Limiter.Check(ctx, key, ratelimit.PolicyVerifyEmail)
	if err != nil {
		return VerifyEmailResult{Outcome: VerifyOutcomeServerError}, err
	}
	if !res.Allowed {
		return VerifyEmailResult{Outcome: VerifyOutcomeRateLimited}, nil
	}
	if err := s.Limiter.Increment(ctx, key, ratelimit.PolicyVerifyEmail); err != nil {
		return VerifyEmailResult{Outcome: VerifyOutcomeServerError}, err
	}

	if token == "" {
		return VerifyEmailResult{Outcome: VerifyOutcomeMissingToken}, nil
	}
	if !s.Tokens.ValidateFormat(token) {
		return VerifyEmailResult{Outcome: VerifyOutcomeInvalidToken}, nil
	}

	u, err := s.Store.Users().GetUserByVerificationTokenHash(ctx, s.Tokens.Hash(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerifyEmailResult{Outcome: VerifyOutcomeInvalidOrUsed}, nil
		}
		return VerifyEmailResult{Outcome: VerifyOutcomeServerError}, err
	}

	if u.IsBlocked {
		return VerifyEmailResult{Outcome: VerifyOutcomeBlocked}, nil
	}

	// A token can outlive its purpose if the user clicked an old link after
	// already verifying. Treat that as success rather than an error.
	if u.Verified() {
		return VerifyEmailResult{Outcome: VerifyOutcomeAlreadyVerified, Email: u.Email}, nil
	}

	if u.VerificationTokenExpiresAt != nil && time.Now().After(*u.VerificationTokenExpiresAt) {
		if err := s.Store.Users().ClearVerificationToken(ctx, u.ID); err != nil {
			return VerifyEmailResult{Outcome: VerifyOutcomeServerError}, err
		}
		// Carry the email so the result page can offer a resend.
		return VerifyEmailResult{Outcome: VerifyOutcomeExpired, Email: u.Email}, nil
	}

	if err := s.Store.Users().MarkEmailVerified(ctx, u.ID, time.Now().UTC()); err != nil {
		return VerifyEmailResult{Outcome: VerifyOutcomeServerError}, err
	}

	if err := s.Limiter.Clear(ctx, key); err != nil {
		l.Warn("failed to clear verify-email limiter", slog.Any("error", err))
	}

	l.Info("email verified", slog.String("user_id", u.ID))

	return VerifyEmailResult{Outcome: VerifyOutcomeVerified, Email: u.Email}, nil
}
