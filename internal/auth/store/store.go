package store

import (
	"context"
	"errors"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., reset
	// completion: new password hash + token clear together).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential-store contract the auth flows depend on. Lookups by
// token always take the token's hash, never the plaintext.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by normalized (lowercase, trimmed) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByPhone looks up a user by phone number.
	GetUserByPhone(ctx context.Context, phone string) (domain.User, error)

	// GetUserByVerificationTokenHash returns the user holding this
	// verification token hash, expired or not; expiry policy belongs to
	// the caller.
	GetUserByVerificationTokenHash(ctx context.Context, hash string) (domain.User, error)

	// GetUserByResetTokenHash returns the user holding this reset token hash.
	GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on an email or phone uniqueness collision
	// without distinguishing which field collided.
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateProfile mutates the authorization-controlled profile fields
	// and bumps updated_at.
	UpdateProfile(ctx context.Context, userID string, p ProfilePatch) error

	// UpdateRole changes a user's role.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// UpdatePasswordHash sets the password_hash (argon2), bumps the
	// session version so outstanding sessions stop verifying, and bumps
	// updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetVerificationToken overwrites the verification token hash+expiry.
	// Issuing a new token implicitly invalidates the previous one.
	SetVerificationToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// ClearVerificationToken nulls both verification token fields.
	ClearVerificationToken(ctx context.Context, userID string) error

	// MarkEmailVerified sets email_verified_at, activates the account and
	// clears the verification token fields in one statement.
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error

	// SetResetToken overwrites the reset token hash+expiry.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken nulls both reset token fields.
	ClearResetToken(ctx context.Context, userID string) error

	// SetBlocked flips the account's blocked flag.
	SetBlocked(ctx context.Context, userID string, blocked bool) error

	// DeleteUser removes the account.
	DeleteUser(ctx context.Context, userID string) error

	// ClearExpiredTokens nulls verification/reset token fields whose
	// expiry has passed (housekeeping).
	ClearExpiredTokens(ctx context.Context, now time.Time) error
}

// ProfilePatch carries optional profile mutations; nil fields are left
// untouched.
type ProfilePatch struct {
	FirstName       *string
	LastName        *string
	PhoneNumber     *string
	AlternateNumber *string
	Street          *string
	City            *string
	State           *string
	Zip             *string
}
