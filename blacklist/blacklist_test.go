package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
)

func testTokens(t *testing.T) *token.Manager {
	t.Helper()
	m, err := token.NewManager(token.DefaultConfig([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)
	return m
}

func TestStoreBackedRoundTrip(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t)
	cs, err := store.Open(":memory:")
	require.NoError(t, err)

	svc := NewStoreBacked(tokens, cs)

	access, err := tokens.IssueAccessToken("acct-1", "a@x.com", "alice", "role-1")
	require.NoError(t, err)

	live, err := svc.IsBlacklisted(ctx, access)
	require.NoError(t, err)
	assert.False(t, live)

	require.NoError(t, svc.Blacklist(ctx, access, "logout"))

	live, err = svc.IsBlacklisted(ctx, access)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestStoreBackedEntryDiesWithToken(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t)
	cs, err := store.Open(":memory:")
	require.NoError(t, err)

	svc := NewStoreBacked(tokens, cs)
	access, err := tokens.IssueAccessToken("acct-1", "a@x.com", "alice", "role-1")
	require.NoError(t, err)
	require.NoError(t, svc.Blacklist(ctx, access, "logout"))

	// Advance the service clock past the token's own expiry.
	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	live, err := svc.IsBlacklisted(ctx, access)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestStoreBackedExpiredTokenIsNoOp(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t)
	cs, err := store.Open(":memory:")
	require.NoError(t, err)

	svc := NewStoreBacked(tokens, cs)
	access, err := tokens.IssueAccessToken("acct-1", "a@x.com", "alice", "role-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	require.NoError(t, svc.Blacklist(ctx, access, "logout"))
}

func TestStoreBackedRejectsForgedToken(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t)
	cs, err := store.Open(":memory:")
	require.NoError(t, err)

	svc := NewStoreBacked(tokens, cs)
	assert.Error(t, svc.Blacklist(ctx, "not-a-real-token", "logout"))
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	svc := NewRedis(tokens, client)
	access, err := tokens.IssueAccessToken("acct-1", "a@x.com", "alice", "role-1")
	require.NoError(t, err)

	live, err := svc.IsBlacklisted(ctx, access)
	require.NoError(t, err)
	assert.False(t, live)

	require.NoError(t, svc.Blacklist(ctx, access, "logout"))

	live, err = svc.IsBlacklisted(ctx, access)
	require.NoError(t, err)
	assert.True(t, live)

	// TTL tracks the token's own remaining lifetime.
	mr.FastForward(16 * time.Minute)
	live, err = svc.IsBlacklisted(ctx, access)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestRedisLookupFailureSurfacesError(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewRedis(tokens, client)

	mr.Close()

	_, err := svc.IsBlacklisted(ctx, "whatever")
	assert.Error(t, err)
}
