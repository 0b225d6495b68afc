package service

import (
	"context"
	"strings"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/store"
)

// UserService backs the ability-guarded user management endpoints. The
// ability checks themselves live in the handlers, where the caller's session
// is in scope; this layer does normalization and storage.
type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// ListUsers returns all users, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// UpdateProfile applies a partial profile update.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p store.ProfilePatch) error {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.FirstName = trim(p.FirstName)
	p.LastName = trim(p.LastName)
	p.PhoneNumber = trim(p.PhoneNumber)
	p.AlternateNumber = trim(p.AlternateNumber)

	return s.Store.Users().UpdateProfile(ctx, userID, p)
}

// UpdateRole changes a user's role. Unknown role strings are rejected rather
// than silently coerced.
func (s *UserService) UpdateRole(ctx context.Context, userID, role string) error {
	parsed := domain.ParseRole(role)
	if string(parsed) != strings.ToUpper(strings.TrimSpace(role)) {
		return invalidField("role", "is not a recognized role")
	}
	return s.Store.Users().UpdateRole(ctx, userID, parsed)
}

// DeleteUser removes an account.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.Store.Users().DeleteUser(ctx, userID)
}
