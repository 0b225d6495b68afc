package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/internal/auth/store/drivers/sqlite"
	"github.com/courtsidehq/courtside/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestUser() domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Email:        "alice@example.com",
		PhoneNumber:  "9998887776",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		FirstName:    "Alice",
		LastName:     "Nguyen",
		Role:         domain.RoleUser,
	}
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, u))

	t.Run("lookup by id", func(t *testing.T) {
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, got.Email)
		require.Equal(t, domain.RoleUser, got.Role)
		require.Nil(t, got.EmailVerifiedAt)
		require.False(t, got.IsActive)
		require.EqualValues(t, 1, got.SessionVersion)
	})

	t.Run("lookup by email is case-insensitive", func(t *testing.T) {
		got, err := st.Users().GetUserByEmail(ctx, "  ALICE@Example.COM ")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("lookup by phone", func(t *testing.T) {
		got, err := st.Users().GetUserByPhone(ctx, "9998887776")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("missing user maps to ErrNotFound", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCreateUser_DuplicateCollapsesToOneError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, u))

	dupEmail := newTestUser()
	dupEmail.ID = idx.New().String()
	dupEmail.PhoneNumber = "1112223334"
	errEmail := st.Users().CreateUser(ctx, dupEmail)
	require.ErrorIs(t, errEmail, store.ErrAlreadyExists)

	dupPhone := newTestUser()
	dupPhone.ID = idx.New().String()
	dupPhone.Email = "bob@example.com"
	errPhone := st.Users().CreateUser(ctx, dupPhone)
	require.ErrorIs(t, errPhone, store.ErrAlreadyExists)

	// Callers must not be able to tell which field collided.
	require.Equal(t, errEmail.Error(), errPhone.Error())
}

func TestVerificationTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, u))

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, st.Users().SetVerificationToken(ctx, u.ID, "tok-hash-1", expiry))

	got, err := st.Users().GetUserByVerificationTokenHash(ctx, "tok-hash-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.VerificationTokenExpiresAt)

	// Issuing a new token overwrites the old one.
	require.NoError(t, st.Users().SetVerificationToken(ctx, u.ID, "tok-hash-2", expiry))
	_, err = st.Users().GetUserByVerificationTokenHash(ctx, "tok-hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.Users().MarkEmailVerified(ctx, u.ID, now))

	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailVerifiedAt)
	require.True(t, got.IsActive)
	require.Nil(t, got.VerificationTokenHash)
	require.Nil(t, got.VerificationTokenExpiresAt)
}

func TestUpdatePasswordHashBumpsSessionVersion(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, u))

	require.NoError(t, st.Users().UpdatePasswordHash(ctx, u.ID, "new-hash"))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.EqualValues(t, 2, got.SessionVersion)
}

func TestResetCompletionIsAtomic(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, u))

	expiry := time.Now().Add(time.Hour).UTC()
	require.NoError(t, st.Users().SetResetToken(ctx, u.ID, "reset-hash", expiry))

	// A failing transaction leaves both password and token untouched.
	errBoom := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, "should-not-stick"); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, errBoom, context.Canceled)

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.PasswordHash, got.PasswordHash)
	require.NotNil(t, got.ResetTokenHash)

	// The happy path applies both together.
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, "fresh-hash"); err != nil {
			return err
		}
		return tx.Users().ClearResetToken(ctx, u.ID)
	}))

	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "fresh-hash", got.PasswordHash)
	require.Nil(t, got.ResetTokenHash)
	require.Nil(t, got.ResetTokenExpiresAt)
}

func TestClearExpiredTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	expired := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, expired))
	require.NoError(t, st.Users().SetVerificationToken(ctx, expired.ID, "dead-hash", time.Now().Add(-time.Hour).UTC()))

	live := newTestUser()
	live.ID = idx.New().String()
	live.Email = "bob@example.com"
	live.PhoneNumber = "1112223334"
	require.NoError(t, st.Users().CreateUser(ctx, live))
	require.NoError(t, st.Users().SetResetToken(ctx, live.ID, "live-hash", time.Now().Add(time.Hour).UTC()))

	require.NoError(t, st.Users().ClearExpiredTokens(ctx, time.Now().UTC()))

	got, err := st.Users().GetUserByID(ctx, expired.ID)
	require.NoError(t, err)
	require.Nil(t, got.VerificationTokenHash)

	got, err = st.Users().GetUserByID(ctx, live.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResetTokenHash)
}
