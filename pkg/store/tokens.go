package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTokenExpired is returned when a reset token is past its expiry.
	ErrTokenExpired = errors.New("reset token expired")

	// ErrTokenUsed is returned when a reset token has already been consumed.
	ErrTokenUsed = errors.New("reset token already used")
)

// DefaultTokenTTL is how long a reset token stays usable.
const DefaultTokenTTL = time.Hour

// TokenService issues and consumes single-use password-reset tokens.
// Single-use is checked, not structurally enforced: the flag lives on the
// stored record and Consume flips it.
type TokenService struct {
	store  *Store
	logger *zap.Logger
	ttl    time.Duration
}

func NewTokenService(s *Store, logger *zap.Logger, ttl time.Duration) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{store: s, logger: logger, ttl: ttl}
}

// Create issues a new token for email. The key is 32 bytes of crypto
// randomness, hex encoded.
func (svc *TokenService) Create(email, ip string) (string, ResetToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", ResetToken{}, fmt.Errorf("generate reset token: %w", err)
	}
	key := hex.EncodeToString(raw)

	now := time.Now()
	token := ResetToken{
		Email:     email,
		ExpiresAt: now.Add(svc.ttl),
		CreatedAt: now,
		IP:        ip,
	}
	svc.store.ResetTokens.Set(key, token)

	svc.logger.Info("reset token issued",
		zap.String("email", email),
		zap.String("ip", ip),
		zap.Time("expiresAt", token.ExpiresAt))
	return key, token, nil
}

// Consume validates and burns a token. Expired tokens are deleted on read;
// used tokens are rejected but kept so repeat attempts stay observable.
func (svc *TokenService) Consume(key string) (ResetToken, error) {
	token, ok := svc.store.ResetTokens.Get(key)
	if !ok {
		return ResetToken{}, ErrNotFound
	}
	if time.Now().After(token.ExpiresAt) {
		svc.store.ResetTokens.Delete(key)
		return ResetToken{}, ErrTokenExpired
	}
	if token.Used {
		return ResetToken{}, ErrTokenUsed
	}

	token.Used = true
	svc.store.ResetTokens.Set(key, token)
	return token, nil
}
