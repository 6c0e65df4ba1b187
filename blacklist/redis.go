package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexcrm/lexcrm/token"
)

const redisKeyPrefix = "lexcrm:bl:"

// Redis is the alternative Service for deployments that already run Redis;
// native key TTLs replace the credential store's passive garbage collection.
type Redis struct {
	tokens *token.Manager
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedis returns a Service over the given Redis client.
func NewRedis(tokens *token.Manager, client redis.UniversalClient) *Redis {
	return &Redis{tokens: tokens, client: client, now: time.Now}
}

func (r *Redis) key(accessToken string) string {
	return redisKeyPrefix + accessToken
}

func (r *Redis) Blacklist(ctx context.Context, accessToken, reason string) error {
	_, expiry, err := r.tokens.ExtractExpiry(accessToken)
	if err != nil {
		return fmt.Errorf("decode token expiry: %w", err)
	}
	ttl := expiry.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(accessToken), reason, ttl).Err(); err != nil {
		return fmt.Errorf("persist blacklist entry: %w", err)
	}
	return nil
}

func (r *Redis) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(accessToken)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}
