package domain

import (
	"strings"
	"time"
)

// Role is the access level assigned to a user account.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleModerator  Role = "MODERATOR"
	RoleScorer     Role = "SCORER"
	RoleUser       Role = "USER"
)

// ParseRole maps a stored string to a Role, defaulting to RoleUser for
// anything unrecognized.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case RoleAdmin:
		return RoleAdmin
	case RoleModerator:
		return RoleModerator
	case RoleScorer:
		return RoleScorer
	default:
		return RoleUser
	}
}

// Address is the nested postal address on a user profile.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

type User struct {
	ID           string
	Email        string // unique, stored lowercase+trimmed
	PhoneNumber  string // unique
	PasswordHash string // argon2 encoded

	FirstName       string
	LastName        string
	AlternateNumber string
	Address         Address

	Role Role

	// Verification state. EmailVerifiedAt is nil until the user follows
	// the emailed link.
	EmailVerifiedAt            *time.Time
	VerificationTokenHash      *string
	VerificationTokenExpiresAt *time.Time

	// Password reset state.
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time

	IsActive  bool
	IsBlocked bool

	// SessionVersion is bumped whenever the password changes; session
	// tokens carry the version they were minted under, so older sessions
	// stop verifying.
	SessionVersion int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AbilitySubject tags User for permission rule matching.
func (User) AbilitySubject() string { return "User" }

// Verified reports whether the user has completed email verification.
func (u User) Verified() bool { return u.EmailVerifiedAt != nil }

// NormalizeEmail canonicalizes an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
