package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errLimiterUnavailable = errors.New("login limiter unavailable")

// LoginLimiter counts failed logins per identifier+IP in Redis. The first
// failure starts the cooldown window; reaching the cap rejects further
// attempts until the key expires.
//
// Limiter availability is deliberately weaker than the blacklist's: a
// Redis outage must not lock the whole firm out, so the service logs
// limiter errors and lets the login proceed.
type LoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	cooldown    time.Duration
}

// NewLoginLimiter wires the limiter.
func NewLoginLimiter(client redis.UniversalClient, maxAttempts int, cooldown time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, cooldown: cooldown}
}

func (l *LoginLimiter) key(email, ip string) string {
	sum := sha256.Sum256([]byte(email + "|" + ip))
	return "lexcrm:login:" + hex.EncodeToString(sum[:16])
}

// Check returns ErrRateLimited when the cap is already reached. A nil
// *LoginLimiter always passes.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	count, err := l.client.Get(ctx, l.key(email, ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
	}
	if count >= int64(l.maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure increments the counter, starting the cooldown on the
// first failure in a window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	key := l.key(email, ip)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.client.Del(ctx, l.key(email, ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
	}
	return nil
}
