package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeRawSize = 32

// CodeStore keeps single-use, short-lived codes (password reset, email
// verification) in Redis. Only the SHA-256 of a code is ever stored; the
// value under the key is the owning account ID. Consumption is an atomic
// GETDEL, so a code can never be redeemed twice.
type CodeStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewResetCodeStore returns the store for password reset codes.
func NewResetCodeStore(client redis.UniversalClient, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, prefix: "lexcrm:reset:", ttl: ttl}
}

// NewVerificationCodeStore returns the store for email verification codes.
func NewVerificationCodeStore(client redis.UniversalClient, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, prefix: "lexcrm:verify:", ttl: ttl}
}

func (s *CodeStore) key(code string) string {
	sum := sha256.Sum256([]byte(code))
	return s.prefix + hex.EncodeToString(sum[:])
}

// Issue mints a fresh code bound to the account and returns its plaintext
// exactly once.
func (s *CodeStore) Issue(ctx context.Context, accountID string) (string, error) {
	if s == nil {
		return "", errors.New("code store not configured")
	}
	raw := make([]byte, codeRawSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	code := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.client.Set(ctx, s.key(code), accountID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// Consume redeems the code and returns the bound account ID. A missing,
// expired or already-used code reports ErrResetCodeInvalid.
func (s *CodeStore) Consume(ctx context.Context, code string) (string, error) {
	if s == nil {
		return "", ErrResetCodeInvalid
	}
	accountID, err := s.client.GetDel(ctx, s.key(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrResetCodeInvalid
		}
		return "", fmt.Errorf("consume code: %w", err)
	}
	if accountID == "" {
		return "", ErrResetCodeInvalid
	}
	return accountID, nil
}
