package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/cryptox"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
	IP              string
}

// ResetPassword completes the forgot-password flow with an emailed token.
//
// The flow is keyed by IP since the caller is anonymous. Completion is one
// store transaction: the new password hash and the token clear land together
// or not at all, so a token can never survive the password it reset.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	l := slogx.FromContext(ctx)

	key := ratelimit.Key("reset-password", in.IP)
	if err := s.checkLimit(ctx, key, ratelimit.PolicyResetPassword); err != nil {
		return err
	}
	if err := s.Limiter.Increment(ctx, key, ratelimit.PolicyResetPassword); err != nil {
		return err
	}

	if !s.Tokens.ValidateFormat(in.Token) {
		return ErrInvalidToken
	}
	if err := validatePassword("password", in.Password); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return invalidField("confirmPassword", "does not match password")
	}

	u, err := s.Store.Users().GetUserByResetTokenHash(ctx, s.Tokens.Hash(in.Token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if u.ResetTokenExpiresAt != nil && time.Now().After(*u.ResetTokenExpiresAt) {
		if err := s.Store.Users().ClearResetToken(ctx, u.ID); err != nil {
			return err
		}
		return ErrTokenExpired
	}

	if u.IsBlocked {
		return ErrAccountBlocked
	}
	if !u.IsActive {
		return ErrAccountInactive
	}

	// Hash-compare, never plaintext: reusing the current password would keep
	// any leaked credential alive.
	if cryptox.VerifyPassword(in.Password, u.PasswordHash) == nil {
		return ErrSamePassword
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return err
		}
		return tx.Users().ClearResetToken(ctx, u.ID)
	})
	if err != nil {
		return err
	}

	if err := s.Limiter.Clear(ctx, key); err != nil {
		l.Warn("failed to clear reset-password limiter", slog.Any("error", err))
	}

	l.Info("password reset completed", slog.String("user_id", u.ID))
	return nil
}
