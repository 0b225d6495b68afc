package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

// ForgotPassword issues a password reset token and emails it.
//
// The caller-visible result is identical whether or not the account exists or
// is blocked; only rate-limit and validation failures are distinguishable.
// Unlike registration, the email here is load-bearing: if it cannot be sent,
// the freshly stored token is rolled back so no orphaned live token lingers.
func (s *AuthService) ForgotPassword(ctx context.Context, email, ip string) error {
	l := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" {
		return invalidField("email", "is required")
	}

	key := ratelimit.Key("forgot-password", email, ip)
	if err := s.checkLimit(ctx, key, ratelimit.PolicyForgotPassword); err != nil {
		return err
	}
	if err := s.Limiter.Increment(ctx, key, ratelimit.PolicyForgotPassword); err != nil {
		return err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Success-shaped: no account enumeration through this endpoint.
			return nil
		}
		return err
	}

	// Blocked and inactive accounts get the same success-shaped response
	// but no token: neither may complete a reset, so issuing one would only
	// create a live credential for an account that cannot use it.
	if u.IsBlocked || !u.IsActive {
		return nil
	}

	token, err := s.Tokens.Issue()
	if err != nil {
		return err
	}

	if err := s.Store.Users().SetResetToken(ctx, u.ID, token.Hash, token.ExpiresAt); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordResetEmail(ctx, u.Email, u.FirstName, token.Plaintext); err != nil {
		l.Error("failed to send password reset email",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
		if clearErr := s.Store.Users().ClearResetToken(ctx, u.ID); clearErr != nil {
			l.Error("failed to roll back reset token", slog.String("user_id", u.ID), slog.Any("error", clearErr))
		}
		return fmt.Errorf("send password reset email: %w", err)
	}

	l.Info("password reset token issued", slog.String("user_id", u.ID))
	return nil
}
