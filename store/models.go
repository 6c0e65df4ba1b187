// Package store owns durable credential state: accounts, roles and
// permissions, refresh tokens, blacklist entries, and hashed backup codes.
//
// The package exposes a CredentialStore interface consumed by the auth,
// rbac and blacklist layers, plus a GORM implementation over SQLite.
// Refresh-token rotation is a single transactional operation here; callers
// never compose it from separate revoke and create calls.
package store

import "time"

// Account is a staff login identity. TwoFactorSecret present with
// TwoFactorEnabled false means enrollment is pending confirmation.
type Account struct {
	ID               string `gorm:"primaryKey;size:36"`
	Email            string `gorm:"uniqueIndex;size:255;not null"`
	Username         string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash     string `gorm:"not null"`
	FirstName        string `gorm:"size:64"`
	LastName         string `gorm:"size:64"`
	Active           bool   `gorm:"not null;default:true"`
	Verified         bool   `gorm:"not null;default:false"`
	TwoFactorEnabled bool   `gorm:"not null;default:false"`
	TwoFactorSecret  string `gorm:"size:64"`
	LastLoginAt      *time.Time
	RoleID           string `gorm:"size:36;index;not null"`
	Role             Role   `gorm:"foreignKey:RoleID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Role groups permissions. Seeded at startup, referenced by accounts,
// never mutated by the session core.
type Role struct {
	ID          string       `gorm:"primaryKey;size:36"`
	Name        string       `gorm:"uniqueIndex;size:64;not null"`
	Description string       `gorm:"size:255"`
	Permissions []Permission `gorm:"many2many:role_permissions"`
	CreatedAt   time.Time
}

// Permission names follow "resource:action" (clients:read, cases:write).
type Permission struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"uniqueIndex;size:128;not null"`
	Resource    string `gorm:"size:64;not null"`
	Action      string `gorm:"size:32;not null"`
	Description string `gorm:"size:255"`
}

// RefreshToken is keyed by its own opaque value for O(1) lookup.
type RefreshToken struct {
	Token     string    `gorm:"primaryKey;size:128"`
	AccountID string    `gorm:"size:36;index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// Valid reports whether the token can still mint a successor.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// BlacklistEntry marks an access token rejected before its natural expiry.
// ExpiresAt mirrors the token's own expiry; past that point the entry is
// logically absent even before physical cleanup runs.
type BlacklistEntry struct {
	Token     string    `gorm:"primaryKey;size:1024"`
	AccountID string    `gorm:"size:36;index"`
	Reason    string    `gorm:"size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// BackupCode stores only the SHA-256 of a single-use recovery code.
// Consumption deletes the row in the same statement that accepts it.
type BackupCode struct {
	ID        string `gorm:"primaryKey;size:36"`
	AccountID string `gorm:"size:36;not null;uniqueIndex:idx_backup_account_hash"`
	CodeHash  string `gorm:"size:64;not null;uniqueIndex:idx_backup_account_hash"`
	CreatedAt time.Time
}
