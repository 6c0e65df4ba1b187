package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrRevoked is returned by RotateRefreshToken when the presented token
	// is no longer valid, including the case where a concurrent rotation won.
	ErrRevoked = errors.New("refresh token revoked")
)

// CredentialStore is the durable source of truth for the session core.
// Every method treats a caller-side context cancellation as failure, never
// partial success.
type CredentialStore interface {
	CreateAccount(ctx context.Context, acct *Account) error
	AccountByID(ctx context.Context, id string) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdateAccount(ctx context.Context, acct *Account) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	MarkVerified(ctx context.Context, id string) error

	// SetPendingTwoFactor stores the pending secret and replaces the backup
	// code set without flipping the enabled flag.
	SetPendingTwoFactor(ctx context.Context, accountID, secret string, codeHashes []string) error
	EnableTwoFactor(ctx context.Context, accountID string) error
	// DisableTwoFactor clears the flag, the secret and the backup codes in
	// one transaction; partial state is never observable.
	DisableTwoFactor(ctx context.Context, accountID string) error
	// ConsumeBackupCode deletes the matching hash; ErrNotFound means the
	// code was never issued or was already used.
	ConsumeBackupCode(ctx context.Context, accountID, codeHash string) error

	RoleByID(ctx context.Context, id string) (*Role, error)
	RoleByName(ctx context.Context, name string) (*Role, error)

	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	RefreshTokenByValue(ctx context.Context, value string) (*RefreshToken, error)
	// RotateRefreshToken revokes the presented token and inserts its
	// replacement as one atomic unit. The conditional revoke requires the
	// old token to be unrevoked and unexpired; losing that race returns
	// ErrRevoked.
	RotateRefreshToken(ctx context.Context, oldValue string, next *RefreshToken) error
	RevokeRefreshToken(ctx context.Context, value string) error
	RevokeAccountRefreshTokens(ctx context.Context, accountID string) error

	AddBlacklistEntry(ctx context.Context, entry *BlacklistEntry) error
	// IsBlacklisted reports whether a live entry exists for the exact token
	// string. Expired entries read as absent.
	IsBlacklisted(ctx context.Context, token string, now time.Time) (bool, error)
	// PurgeExpired garbage-collects dead refresh tokens and blacklist
	// entries. Safe to call at any time.
	PurgeExpired(ctx context.Context, now time.Time) error
}
