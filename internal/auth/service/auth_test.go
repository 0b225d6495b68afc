package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store/drivers/sqlite"
	"github.com/courtsidehq/courtside/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "test-pepper-service")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// fakeMailer records outgoing mail and can be told to fail.
type fakeMailer struct {
	verificationTokens []string
	resetTokens        []string
	fail               bool
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, _, _, token string) error {
	if m.fail {
		return os.ErrDeadlineExceeded
	}
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, _, _, token string) error {
	if m.fail {
		return os.ErrDeadlineExceeded
	}
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

type testAuth struct {
	*AuthService
	mailer *fakeMailer
	store  *sqlite.Store
}

func newTestAuth(t *testing.T) *testAuth {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mailer := &fakeMailer{}

	return &testAuth{
		AuthService: &AuthService{
			Store:   st,
			Limiter: ratelimit.NewMemoryLimiter(),
			Tokens:  &TokenService{},
			Sessions: &SessionService{
				Store:  st,
				Secret: []byte("test-session-secret"),
				Issuer: "courtside-test",
			},
			Mailer: mailer,
		},
		mailer: mailer,
		store:  st,
	}
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:           "a@x.com",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
		PhoneNumber:     "9998887776",
		FirstName:       "Alex",
		IP:              "203.0.113.7",
	}
}

func TestRegisterVerifyLoginScenario(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	u, err := a.Register(ctx, registerInput())
	require.NoError(t, err)
	require.Len(t, a.mailer.verificationTokens, 1)

	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.EmailVerifiedAt)
	require.NotNil(t, stored.VerificationTokenHash)
	require.NotEqual(t, a.mailer.verificationTokens[0], *stored.VerificationTokenHash,
		"plaintext must never be persisted")

	// Login before verification is refused with the distinct state error.
	_, err = a.Login(ctx, LoginInput{Email: "a@x.com", Password: "Passw0rd!", IP: "203.0.113.7"})
	require.ErrorIs(t, err, ErrEmailNotVerified)

	res, err := a.VerifyEmail(ctx, a.mailer.verificationTokens[0], "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeVerified, res.Outcome)

	stored, err = a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EmailVerifiedAt)
	require.True(t, stored.IsActive)

	login, err := a.Login(ctx, LoginInput{Email: "a@x.com", Password: "Passw0rd!", IP: "203.0.113.7"})
	require.NoError(t, err)
	require.Equal(t, DefaultLoginRedirect, login.RedirectTo)
	require.NotEmpty(t, login.Token)

	sess, err := a.Sessions.Verify(ctx, login.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, sess.UserID)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	mustRegisterVerified(t, a)

	in := LoginInput{Email: "a@x.com", Password: "wrong-password", IP: "203.0.113.7"}

	// Failures short of the maximum stay generic and carry a countdown.
	for i := 0; i < ratelimit.PolicyLogin.MaxAttempts-1; i++ {
		_, err := a.Login(ctx, in)
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}

	// The final failure exhausts the window and reports the lockout instead.
	_, err := a.Login(ctx, in)
	var lockedOut *RateLimitedError
	require.ErrorAs(t, err, &lockedOut)

	// Even the correct password is refused now, with a positive retry-after.
	_, err = a.Login(ctx, LoginInput{Email: "a@x.com", Password: "Passw0rd!", IP: "203.0.113.7"})
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	require.Positive(t, limited.RetryAfter)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	mustRegisterVerified(t, a)

	_, errMissing := a.Login(ctx, LoginInput{Email: "nobody@x.com", Password: "Passw0rd!", IP: "203.0.113.7"})
	_, errWrong := a.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong-password", IP: "203.0.113.7"})

	require.ErrorIs(t, errMissing, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.Equal(t, errMissing.Error(), errWrong.Error())
}

func TestLoginSurfacesRemainingAttempts(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	mustRegisterVerified(t, a)

	_, err := a.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong-password", IP: "203.0.113.7"})

	var remaining *AttemptsRemainingError
	require.ErrorAs(t, err, &remaining)
	require.Equal(t, ratelimit.PolicyLogin.MaxAttempts-1, remaining.Remaining)
}

func TestLoginCallbackOverridesRedirect(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	mustRegisterVerified(t, a)

	login, err := a.Login(ctx, LoginInput{
		Email:    "a@x.com",
		Password: "Passw0rd!",
		IP:       "203.0.113.7",
		Callback: "/tournaments/42",
	})
	require.NoError(t, err)
	require.Equal(t, "/tournaments/42", login.RedirectTo)
}

func TestRegisterDuplicateIsSingleMessage(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	_, err := a.Register(ctx, registerInput())
	require.NoError(t, err)

	dupEmail := registerInput()
	dupEmail.PhoneNumber = "1112223334"
	_, errEmail := a.Register(ctx, dupEmail)
	require.ErrorIs(t, errEmail, ErrAccountExists)

	dupPhone := registerInput()
	dupPhone.Email = "b@x.com"
	_, errPhone := a.Register(ctx, dupPhone)
	require.ErrorIs(t, errPhone, ErrAccountExists)

	require.Equal(t, errEmail.Error(), errPhone.Error())
}

func TestRegisterSurvivesMailerFailure(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	a.mailer.fail = true

	u, err := a.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	_, err := a.Register(ctx, registerInput())
	require.NoError(t, err)
	token := a.mailer.verificationTokens[0]

	res, err := a.VerifyEmail(ctx, token, "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeVerified, res.Outcome)

	// The hash fields were cleared, so the same plaintext no longer resolves.
	res, err = a.VerifyEmail(ctx, token, "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeInvalidOrUsed, res.Outcome)
}

func TestVerifyEmailRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	res, err := a.VerifyEmail(ctx, "", "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeMissingToken, res.Outcome)

	res, err = a.VerifyEmail(ctx, "not-a-token", "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeInvalidToken, res.Outcome)
}

func TestVerifyEmailExpiredTokenOffersResend(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	u, err := a.Register(ctx, registerInput())
	require.NoError(t, err)
	token := a.mailer.verificationTokens[0]

	// Age the token past its expiry.
	require.NoError(t, a.Store.Users().SetVerificationToken(ctx, u.ID,
		a.Tokens.Hash(token), time.Now().Add(-time.Minute).UTC()))

	res, err := a.VerifyEmail(ctx, token, "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeExpired, res.Outcome)
	require.Equal(t, "a@x.com", res.Email)

	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.VerificationTokenHash)
}

func TestForgotPasswordDoesNotLeakAccounts(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	mustRegisterVerified(t, a)

	require.NoError(t, a.ForgotPassword(ctx, "a@x.com", "203.0.113.7"))
	require.NoError(t, a.ForgotPassword(ctx, "nobody@x.com", "203.0.113.7"))
	require.Len(t, a.mailer.resetTokens, 1)
}

func TestForgotPasswordRollsBackTokenOnSendFailure(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	a.mailer.fail = true
	err := a.ForgotPassword(ctx, "a@x.com", "203.0.113.7")
	require.Error(t, err)

	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.ResetTokenHash, "token must not survive a failed send")
}

func TestResetPasswordCompletes(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	require.NoError(t, a.ForgotPassword(ctx, "a@x.com", "203.0.113.7"))
	token := a.mailer.resetTokens[0]

	require.NoError(t, a.ResetPassword(ctx, ResetPasswordInput{
		Token:           token,
		Password:        "Fresh-Passw0rd",
		ConfirmPassword: "Fresh-Passw0rd",
		IP:              "203.0.113.7",
	}))

	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.ResetTokenHash)
	require.NoError(t, cryptox.VerifyPassword("Fresh-Passw0rd", stored.PasswordHash))

	// Single use: the consumed token no longer resolves.
	err = a.ResetPassword(ctx, ResetPasswordInput{
		Token:           token,
		Password:        "Another-Passw0rd",
		ConfirmPassword: "Another-Passw0rd",
		IP:              "203.0.113.7",
	})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPasswordRejectsReuse(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	require.NoError(t, a.ForgotPassword(ctx, "a@x.com", "203.0.113.7"))

	err := a.ResetPassword(ctx, ResetPasswordInput{
		Token:           a.mailer.resetTokens[0],
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
		IP:              "203.0.113.7",
	})
	require.ErrorIs(t, err, ErrSamePassword)

	// Nothing moved: the token is still live and the hash unchanged.
	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenHash)
	require.NoError(t, cryptox.VerifyPassword("Passw0rd!", stored.PasswordHash))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	require.NoError(t, a.ForgotPassword(ctx, "a@x.com", "203.0.113.7"))
	token := a.mailer.resetTokens[0]

	require.NoError(t, a.Store.Users().SetResetToken(ctx, u.ID,
		a.Tokens.Hash(token), time.Now().Add(-time.Minute).UTC()))

	err := a.ResetPassword(ctx, ResetPasswordInput{
		Token:           token,
		Password:        "Fresh-Passw0rd",
		ConfirmPassword: "Fresh-Passw0rd",
		IP:              "203.0.113.7",
	})
	require.ErrorIs(t, err, ErrTokenExpired)

	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.ResetTokenHash)
}

func TestChangePasswordInvalidatesSessions(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	login, err := a.Login(ctx, LoginInput{Email: "a@x.com", Password: "Passw0rd!", IP: "203.0.113.7"})
	require.NoError(t, err)

	_, err = a.Sessions.Verify(ctx, login.Token)
	require.NoError(t, err)

	require.NoError(t, a.ChangePassword(ctx, ChangePasswordInput{
		UserID:          u.ID,
		CurrentPassword: "Passw0rd!",
		NewPassword:     "Fresh-Passw0rd",
		ConfirmPassword: "Fresh-Passw0rd",
	}))

	// The pre-change session was minted under the old version and is dead.
	_, err = a.Sessions.Verify(ctx, login.Token)
	require.ErrorIs(t, err, ErrInvalidSession)

	login, err = a.Login(ctx, LoginInput{Email: "a@x.com", Password: "Fresh-Passw0rd", IP: "203.0.113.7"})
	require.NoError(t, err)
	_, err = a.Sessions.Verify(ctx, login.Token)
	require.NoError(t, err)
}

func TestChangePasswordChecks(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	t.Run("wrong current password", func(t *testing.T) {
		err := a.ChangePassword(ctx, ChangePasswordInput{
			UserID:          u.ID,
			CurrentPassword: "wrong-password",
			NewPassword:     "Fresh-Passw0rd",
			ConfirmPassword: "Fresh-Passw0rd",
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("reuse rejected", func(t *testing.T) {
		err := a.ChangePassword(ctx, ChangePasswordInput{
			UserID:          u.ID,
			CurrentPassword: "Passw0rd!",
			NewPassword:     "Passw0rd!",
			ConfirmPassword: "Passw0rd!",
		})
		require.ErrorIs(t, err, ErrSamePassword)
	})

	t.Run("confirmation must match", func(t *testing.T) {
		err := a.ChangePassword(ctx, ChangePasswordInput{
			UserID:          u.ID,
			CurrentPassword: "Passw0rd!",
			NewPassword:     "Fresh-Passw0rd",
			ConfirmPassword: "Other-Passw0rd",
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

func TestPasswordResetRefusedForInactiveAccount(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	u, err := a.Register(ctx, registerInput())
	require.NoError(t, err)

	// Never verified, so the account is still inactive: the request looks
	// successful but no token is issued or mailed.
	require.NoError(t, a.ForgotPassword(ctx, "a@x.com", "203.0.113.7"))
	require.Empty(t, a.mailer.resetTokens)

	stored, err := a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.ResetTokenHash)

	// Even a live token planted straight into the store must not let an
	// inactive account complete the reset.
	token, err := a.Tokens.Issue()
	require.NoError(t, err)
	require.NoError(t, a.Store.Users().SetResetToken(ctx, u.ID, token.Hash, token.ExpiresAt))

	err = a.ResetPassword(ctx, ResetPasswordInput{
		Token:           token.Plaintext,
		Password:        "Fresh-Passw0rd",
		ConfirmPassword: "Fresh-Passw0rd",
		IP:              "203.0.113.7",
	})
	require.ErrorIs(t, err, ErrAccountInactive)

	stored, err = a.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("Passw0rd!", stored.PasswordHash),
		"password must be unchanged")
}

func TestLoginStateChecksPrecedePasswordCheck(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	u, err := a.Register(ctx, registerInput())
	require.NoError(t, err)

	loginKey := ratelimit.Key("login", "a@x.com", "203.0.113.7")

	// Unverified account with a wrong password: the state error wins and the
	// attempt does not count against the login window.
	_, err = a.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong-password", IP: "203.0.113.7"})
	require.ErrorIs(t, err, ErrEmailNotVerified)

	res, err := a.Limiter.Check(ctx, loginKey, ratelimit.PolicyLogin)
	require.NoError(t, err)
	require.Equal(t, ratelimit.PolicyLogin.MaxAttempts, res.Remaining)

	// Verified then blocked: still a state refusal regardless of password.
	verified, err := a.VerifyEmail(ctx, a.mailer.verificationTokens[0], "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeVerified, verified.Outcome)
	blockUser(t, a.store, u.ID)

	_, err = a.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong-password", IP: "203.0.113.7"})
	require.ErrorIs(t, err, ErrAccountBlocked)

	res, err = a.Limiter.Check(ctx, loginKey, ratelimit.PolicyLogin)
	require.NoError(t, err)
	require.Equal(t, ratelimit.PolicyLogin.MaxAttempts, res.Remaining)
}

func TestPasswordLengthIsMeasuredInCharacters(t *testing.T) {
	// Seven characters that encode to eight bytes.
	err := validatePassword("password", "démo123")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields["password"], "at least")

	// One hundred two-byte characters is still within bounds.
	require.NoError(t, validatePassword("password", strings.Repeat("é", maxPasswordLength)))
}

func TestRegisterCounterPersistsAcrossSuccesses(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)

	for i := 0; i < ratelimit.PolicyRegister.MaxAttempts; i++ {
		in := registerInput()
		in.Email = fmt.Sprintf("user%d@x.com", i)
		in.PhoneNumber = fmt.Sprintf("555000%04d", i)
		_, err := a.Register(ctx, in)
		require.NoError(t, err, "registration %d", i+1)
	}

	// Successful registrations are never cleared from the counter, so the
	// next attempt from the same address is refused outright.
	in := registerInput()
	in.Email = "late@x.com"
	in.PhoneNumber = "5551110000"
	_, err := a.Register(ctx, in)
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
}

func TestBlockedAccountIsRefusedEverywhere(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t)
	u := mustRegisterVerified(t, a)

	blockUser(t, a.store, u.ID)

	_, err := a.Login(ctx, LoginInput{Email: "a@x.com", Password: "Passw0rd!", IP: "203.0.113.7"})
	require.ErrorIs(t, err, ErrAccountBlocked)

	err = a.ChangePassword(ctx, ChangePasswordInput{
		UserID:          u.ID,
		CurrentPassword: "Passw0rd!",
		NewPassword:     "Fresh-Passw0rd",
		ConfirmPassword: "Fresh-Passw0rd",
	})
	require.ErrorIs(t, err, ErrAccountBlocked)
}

func blockUser(t *testing.T, st *sqlite.Store, userID string) {
	t.Helper()
	require.NoError(t, st.Users().SetBlocked(context.Background(), userID, true))
}

// mustRegisterVerified registers and verifies the stock test account.
func mustRegisterVerified(t *testing.T, a *testAuth) domain.User {
	t.Helper()
	ctx := context.Background()

	u, err := a.Register(ctx, registerInput())
	require.NoError(t, err)

	res, err := a.VerifyEmail(ctx, a.mailer.verificationTokens[len(a.mailer.verificationTokens)-1], "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, VerifyOutcomeVerified, res.Outcome)

	// Registration counted against the IP; start each test with a clean slate.
	require.NoError(t, a.Limiter.Clear(ctx, ratelimit.Key("register", "203.0.113.7")))
	require.NoError(t, a.Limiter.Clear(ctx, ratelimit.Key("verify-email", "203.0.113.7")))

	return u
}
