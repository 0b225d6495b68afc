package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize256 provides 256 bits of entropy (64 hex chars).
	TokenSize256 = 32

	// TokenHexLength is the encoded length of a TokenSize256 token.
	TokenHexLength = TokenSize256 * 2
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned as a lowercase hexadecimal string. The
// encoded length is always 2*size.
//
// Verification and reset tokens both use TokenSize256; keeping a single
// generator means the two purposes can never drift apart in length or
// alphabet.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error.
// Use this only in contexts where failure is unrecoverable.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token,
// hex encoded (64 chars). Stored tokens are always looked up by fingerprint;
// the plaintext is never persisted.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidTokenFormat reports whether s looks like a token produced by
// GenerateToken(TokenSize256): exactly 64 lowercase hex digits. Callers
// should reject malformed input before hashing or hitting the store.
func ValidTokenFormat(s string) bool {
	if len(s) != TokenHexLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
