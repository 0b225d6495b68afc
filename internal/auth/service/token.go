package service

import (
	"time"

	"github.com/courtsidehq/courtside/pkg/cryptox"
)

// DefaultTokenTTL applies to both verification and reset tokens. The token's
// own expiry column is the single source of truth; nothing else re-derives an
// age window from created_at.
const DefaultTokenTTL = time.Hour

// IssuedToken pairs a token's plaintext (sent out of band, never stored) with
// the hash that is persisted and its expiry.
type IssuedToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// TokenService issues and verifies single-use opaque tokens for the email
// verification and password reset flows.
type TokenService struct {
	TTL time.Duration
}

func (s *TokenService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTokenTTL
}

// Issue mints a fresh 256-bit token. The plaintext leaves the process exactly
// once, inside the outgoing email.
func (s *TokenService) Issue() (IssuedToken, error) {
	plaintext, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		Plaintext: plaintext,
		Hash:      cryptox.FingerprintToken(plaintext),
		ExpiresAt: time.Now().Add(s.ttl()).UTC(),
	}, nil
}

// ValidateFormat rejects anything that is not exactly 64 lowercase hex
// digits, before any store lookup happens. Malformed input never touches the
// database, so attackers get no timing signal about its contents.
func (s *TokenService) ValidateFormat(plaintext string) bool {
	return cryptox.ValidTokenFormat(plaintext)
}

// Hash maps a plaintext token to its stored fingerprint.
func (s *TokenService) Hash(plaintext string) string {
	return cryptox.FingerprintToken(plaintext)
}
