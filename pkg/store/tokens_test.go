package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTokenSingleUse(t *testing.T) {
	s := New()
	svc := NewTokenService(s, zaptest.NewLogger(t), time.Hour)

	key, token, err := svc.Create("user@example.com", "203.0.113.7")
	require.NoError(t, err)
	assert.Len(t, key, 64) // 32 bytes hex encoded
	assert.Equal(t, "user@example.com", token.Email)
	assert.False(t, token.Used)

	consumed, err := svc.Consume(key)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", consumed.Email)

	// second attempt with the same, unexpired token
	_, err = svc.Consume(key)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestTokenExpiryDeletesOnRead(t *testing.T) {
	s := New()
	svc := NewTokenService(s, zaptest.NewLogger(t), time.Hour)

	key, _, err := svc.Create("user@example.com", "")
	require.NoError(t, err)

	// force expiry
	token, ok := s.ResetTokens.Get(key)
	require.True(t, ok)
	token.ExpiresAt = time.Now().Add(-time.Minute)
	s.ResetTokens.Set(key, token)

	_, err = svc.Consume(key)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, 0, s.ResetTokens.Len(), "expired token must be deleted on read")
}

func TestTokenUnknown(t *testing.T) {
	svc := NewTokenService(New(), zaptest.NewLogger(t), 0)
	_, err := svc.Consume("deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}
