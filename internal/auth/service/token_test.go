package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenServiceIssue(t *testing.T) {
	s := &TokenService{}

	tok, err := s.Issue()
	require.NoError(t, err)

	require.True(t, s.ValidateFormat(tok.Plaintext))
	require.Equal(t, s.Hash(tok.Plaintext), tok.Hash)
	require.NotEqual(t, tok.Plaintext, tok.Hash)
	require.WithinDuration(t, time.Now().Add(DefaultTokenTTL), tok.ExpiresAt, time.Minute)

	// Two issues never collide.
	other, err := s.Issue()
	require.NoError(t, err)
	require.NotEqual(t, tok.Plaintext, other.Plaintext)
}

func TestTokenServiceValidateFormat(t *testing.T) {
	s := &TokenService{}

	require.False(t, s.ValidateFormat(""))
	require.False(t, s.ValidateFormat("short"))
	require.False(t, s.ValidateFormat("G2af9e81c3d74b5a6e8f90123456789abcdef0123456789abcdef0123456789a"))
}
