package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/cryptox"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

type ChangePasswordInput struct {
	// UserID comes from the authenticated session, never from the payload.
	UserID          string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword rotates the password of a logged-in user.
//
// The store bumps the session version together with the hash, so every
// outstanding session (this one included) stops verifying and the user must
// log in again with the new password.
func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	l := slogx.FromContext(ctx)

	key := ratelimit.Key("change-password", in.UserID)
	if err := s.checkLimit(ctx, key, ratelimit.PolicyChangePassword); err != nil {
		return err
	}

	if in.CurrentPassword == "" {
		return invalidField("currentPassword", "is required")
	}
	if err := validatePassword("newPassword", in.NewPassword); err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmPassword {
		return invalidField("confirmPassword", "does not match new password")
	}

	u, err := s.Store.Users().GetUserByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if u.IsBlocked {
		return ErrAccountBlocked
	}

	if err := cryptox.VerifyPassword(in.CurrentPassword, u.PasswordHash); err != nil {
		l.Info("change password failed", slog.String("user_id", u.ID))
		return s.recordFailure(ctx, key, ratelimit.PolicyChangePassword)
	}

	if cryptox.VerifyPassword(in.NewPassword, u.PasswordHash) == nil {
		return ErrSamePassword
	}

	hash, err := cryptox.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}

	if err := s.Limiter.Clear(ctx, key); err != nil {
		l.Warn("failed to clear change-password limiter", slog.Any("error", err))
	}

	l.Info("password changed", slog.String("user_id", u.ID))
	return nil
}
