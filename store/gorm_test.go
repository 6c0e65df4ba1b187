package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Gorm {
	t.Helper()
	g, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, g.Seed(context.Background()))
	return g
}

func testAccount(t *testing.T, g *Gorm) *Account {
	t.Helper()
	role, err := g.RoleByName(context.Background(), DefaultRoleName)
	require.NoError(t, err)

	acct := &Account{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@firm.example",
		Username:     "u" + uuid.NewString()[:8],
		PasswordHash: "$argon2id$stub",
		Active:       true,
		RoleID:       role.ID,
	}
	require.NoError(t, g.CreateAccount(context.Background(), acct))
	return acct
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	dup := &Account{
		Email:        acct.Email,
		Username:     "someoneelse",
		PasswordHash: "x",
		RoleID:       acct.RoleID,
	}
	err := g.CreateAccount(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAccountByEmailLoadsRolePermissions(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	loaded, err := g.AccountByEmail(ctx, acct.Email)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, loaded.ID)
	assert.Equal(t, DefaultRoleName, loaded.Role.Name)
	assert.NotEmpty(t, loaded.Role.Permissions)

	_, err = g.AccountByEmail(ctx, "nobody@firm.example")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateRefreshTokenIsSingleUse(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	old := &RefreshToken{
		Token:     "tok-old",
		AccountID: acct.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, g.CreateRefreshToken(ctx, old))

	next := &RefreshToken{Token: "tok-next", AccountID: acct.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, g.RotateRefreshToken(ctx, "tok-old", next))

	// Replay of the rotated token loses.
	again := &RefreshToken{Token: "tok-third", AccountID: acct.ID, ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, g.RotateRefreshToken(ctx, "tok-old", again), ErrRevoked)

	// The replacement exists and the third token was never created.
	got, err := g.RefreshTokenByValue(ctx, "tok-next")
	require.NoError(t, err)
	assert.True(t, got.Valid(time.Now()))
	_, err = g.RefreshTokenByValue(ctx, "tok-third")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateRefreshTokenRejectsExpired(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	stale := &RefreshToken{
		Token:     "tok-stale",
		AccountID: acct.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, g.CreateRefreshToken(ctx, stale))

	next := &RefreshToken{Token: "tok-new", AccountID: acct.ID, ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, g.RotateRefreshToken(ctx, "tok-stale", next), ErrRevoked)
}

func TestRevokeAccountRefreshTokens(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	for _, v := range []string{"tok-a", "tok-b"} {
		require.NoError(t, g.CreateRefreshToken(ctx, &RefreshToken{
			Token: v, AccountID: acct.ID, ExpiresAt: time.Now().Add(time.Hour),
		}))
	}
	require.NoError(t, g.RevokeAccountRefreshTokens(ctx, acct.ID))

	for _, v := range []string{"tok-a", "tok-b"} {
		tok, err := g.RefreshTokenByValue(ctx, v)
		require.NoError(t, err)
		assert.True(t, tok.Revoked)
	}
}

func TestBlacklistEntryExpiresWithToken(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)
	now := time.Now()

	entry := &BlacklistEntry{
		Token:     "access-token-abc",
		AccountID: acct.ID,
		Reason:    "logout",
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, g.AddBlacklistEntry(ctx, entry))

	// Double logout for the same token is a no-op.
	require.NoError(t, g.AddBlacklistEntry(ctx, entry))

	live, err := g.IsBlacklisted(ctx, "access-token-abc", now)
	require.NoError(t, err)
	assert.True(t, live)

	afterExpiry, err := g.IsBlacklisted(ctx, "access-token-abc", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, afterExpiry)
}

func TestPurgeExpired(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)
	now := time.Now()

	require.NoError(t, g.AddBlacklistEntry(ctx, &BlacklistEntry{
		Token: "dead", AccountID: acct.ID, ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, g.CreateRefreshToken(ctx, &RefreshToken{
		Token: "dead-refresh", AccountID: acct.ID, ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, g.CreateRefreshToken(ctx, &RefreshToken{
		Token: "live-refresh", AccountID: acct.ID, ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, g.PurgeExpired(ctx, now))

	_, err := g.RefreshTokenByValue(ctx, "dead-refresh")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = g.RefreshTokenByValue(ctx, "live-refresh")
	assert.NoError(t, err)
}

func TestTwoFactorLifecycle(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	hashes := []string{"hash-1", "hash-2", "hash-3"}
	require.NoError(t, g.SetPendingTwoFactor(ctx, acct.ID, "SECRETBASE32", hashes))

	pending, err := g.AccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, pending.TwoFactorEnabled)
	assert.Equal(t, "SECRETBASE32", pending.TwoFactorSecret)

	require.NoError(t, g.EnableTwoFactor(ctx, acct.ID))
	enabled, err := g.AccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, enabled.TwoFactorEnabled)

	// A backup code is consumed exactly once.
	require.NoError(t, g.ConsumeBackupCode(ctx, acct.ID, "hash-2"))
	assert.ErrorIs(t, g.ConsumeBackupCode(ctx, acct.ID, "hash-2"), ErrNotFound)

	require.NoError(t, g.DisableTwoFactor(ctx, acct.ID))
	disabled, err := g.AccountByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, disabled.TwoFactorEnabled)
	assert.Empty(t, disabled.TwoFactorSecret)
	assert.ErrorIs(t, g.ConsumeBackupCode(ctx, acct.ID, "hash-1"), ErrNotFound)
}

func TestEnableTwoFactorRequiresPendingSecret(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	acct := testAccount(t, g)

	assert.ErrorIs(t, g.EnableTwoFactor(ctx, acct.ID), ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	g := testStore(t)
	ctx := context.Background()
	require.NoError(t, g.Seed(ctx))

	for name, wantPerms := range map[string]int{
		"admin":     1,
		"attorney":  7,
		"paralegal": 4,
		"billing":   4,
	} {
		role, err := g.RoleByName(ctx, name)
		require.NoError(t, err, name)
		assert.Len(t, role.Permissions, wantPerms, name)
	}
}
