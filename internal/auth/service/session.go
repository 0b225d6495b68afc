package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/httpx"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL bounds how long a login survives without re-authenticating.
const DefaultSessionTTL = 24 * time.Hour

// ErrInvalidSession covers every way a session token can fail to verify:
// bad signature, expired, user gone, or minted before the last password
// change. One error so callers cannot distinguish the cases.
var ErrInvalidSession = errors.New("invalid_session")

type sessionClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Role    string `json:"role"`
	Version int64  `json:"ver"`
}

// SessionService mints and verifies HS256 session tokens.
//
// Tokens carry the session version the user had at mint time; a password
// change bumps the stored version, so every session minted before the change
// stops verifying without any server-side session table.
type SessionService struct {
	Store  store.Store
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

// Mint issues a session token for a freshly authenticated user.
func (s *SessionService) Mint(u domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl())

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:   u.Email,
		Role:    string(u.Role),
		Version: u.SessionVersion,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses a session token and re-checks it against the live user
// record: the account must still exist, not be blocked, and the token's
// version must match the current session version.
func (s *SessionService) Verify(ctx context.Context, token string) (httpx.Session, error) {
	var claims sessionClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return httpx.Session{}, ErrInvalidSession
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		return httpx.Session{}, ErrInvalidSession
	}

	if u.IsBlocked || !u.IsActive {
		return httpx.Session{}, ErrInvalidSession
	}

	if claims.Version != u.SessionVersion {
		return httpx.Session{}, ErrInvalidSession
	}

	return httpx.Session{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
	}, nil
}
