package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/cryptox"
	"github.com/courtsidehq/courtside/pkg/idx"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	PhoneNumber     string
	FirstName       string
	LastName        string
	AlternateNumber string
	Address         domain.Address
	IP              string
}

// Register creates a new, unverified account and sends the verification
// email.
//
// The user record is authoritative: if the email provider errors, the account
// is still created and the failure is logged, never surfaced. Duplicate email
// and duplicate phone collapse into one indistinguishable ErrAccountExists.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := s.validateRegistration(in)
	if err != nil {
		return domain.User{}, err
	}

	key := ratelimit.Key("register", in.IP)
	if err := s.checkLimit(ctx, key, ratelimit.PolicyRegister); err != nil {
		return domain.User{}, err
	}
	// Every attempt counts, successful ones included, and the counter is
	// deliberately never cleared on success: the register preset is there to
	// stop bulk account creation from one address, not just bad input.
	if err := s.Limiter.Increment(ctx, key, ratelimit.PolicyRegister); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = hash

	token, err := s.Tokens.Issue()
	if err != nil {
		return domain.User{}, err
	}
	u.VerificationTokenHash = &token.Hash
	u.VerificationTokenExpiresAt = &token.ExpiresAt

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrAccountExists
		}
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID))

	// Best effort: the account exists either way, and verify-email's expired
	// branch offers a resend path.
	if err := s.Mailer.SendVerificationEmail(ctx, u.Email, u.FirstName, token.Plaintext); err != nil {
		l.Error("failed to send verification email",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
	}

	return u, nil
}

func (s *AuthService) validateRegistration(in RegisterInput) (domain.User, error) {
	fields := map[string]string{}

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		fields["email"] = "is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "is not a valid email address"
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		fields["phoneNumber"] = "is required"
	}

	if strings.TrimSpace(in.FirstName) == "" {
		fields["firstName"] = "is required"
	}

	if err := validatePassword("password", in.Password); err != nil {
		var ve *ValidationError
		errors.As(err, &ve)
		for k, v := range ve.Fields {
			fields[k] = v
		}
	} else if in.Password != in.ConfirmPassword {
		fields["confirmPassword"] = "does not match password"
	}

	if len(fields) > 0 {
		return domain.User{}, &ValidationError{Fields: fields}
	}

	return domain.User{
		ID:              idx.New().String(),
		Email:           email,
		PhoneNumber:     phone,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		AlternateNumber: strings.TrimSpace(in.AlternateNumber),
		Address:         in.Address,
		Role:            domain.RoleUser,
		SessionVersion:  1,
	}, nil
}
