package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Gorm implements CredentialStore over a relational database.
type Gorm struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path, runs migrations and
// returns the store. Use ":memory:" for an ephemeral database.
func Open(path string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewGorm(db)
}

// NewGorm wraps an existing connection, migrating the credential tables.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	err := db.AutoMigrate(
		&Permission{},
		&Role{},
		&Account{},
		&RefreshToken{},
		&BlacklistEntry{},
		&BackupCode{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate credential tables: %w", err)
	}
	return &Gorm{db: db}, nil
}

// DB exposes the underlying connection for sibling packages that share the
// database (the CRM layer).
func (g *Gorm) DB() *gorm.DB { return g.db }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (g *Gorm) CreateAccount(ctx context.Context, acct *Account) error {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if err := g.db.WithContext(ctx).Omit("Role").Create(acct).Error; err != nil {
		return fmt.Errorf("create account: %w", translate(err))
	}
	return nil
}

func (g *Gorm) AccountByID(ctx context.Context, id string) (*Account, error) {
	var acct Account
	err := g.db.WithContext(ctx).
		Preload("Role.Permissions").
		First(&acct, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("account by id: %w", translate(err))
	}
	return &acct, nil
}

func (g *Gorm) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var acct Account
	err := g.db.WithContext(ctx).
		Preload("Role.Permissions").
		First(&acct, "email = ?", email).Error
	if err != nil {
		return nil, fmt.Errorf("account by email: %w", translate(err))
	}
	return &acct, nil
}

func (g *Gorm) UpdateAccount(ctx context.Context, acct *Account) error {
	res := g.db.WithContext(ctx).Omit("Role").Save(acct)
	if res.Error != nil {
		return fmt.Errorf("update account: %w", translate(res.Error))
	}
	return nil
}

func (g *Gorm) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res := g.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", id).
		Update("last_login_at", at)
	if res.Error != nil {
		return fmt.Errorf("touch last login: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) SetPasswordHash(ctx context.Context, id, hash string) error {
	res := g.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("set password hash: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) MarkVerified(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", id).
		Update("verified", true)
	if res.Error != nil {
		return fmt.Errorf("mark verified: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) SetPendingTwoFactor(ctx context.Context, accountID, secret string, codeHashes []string) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Account{}).
			Where("id = ?", accountID).
			Update("two_factor_secret", secret)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&BackupCode{}).Error; err != nil {
			return err
		}
		for _, hash := range codeHashes {
			code := BackupCode{ID: uuid.NewString(), AccountID: accountID, CodeHash: hash}
			if err := tx.Create(&code).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set pending two factor: %w", translate(err))
	}
	return nil
}

func (g *Gorm) EnableTwoFactor(ctx context.Context, accountID string) error {
	res := g.db.WithContext(ctx).Model(&Account{}).
		Where("id = ? AND two_factor_secret <> ''", accountID).
		Update("two_factor_enabled", true)
	if res.Error != nil {
		return fmt.Errorf("enable two factor: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) DisableTwoFactor(ctx context.Context, accountID string) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Account{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"two_factor_enabled": false,
				"two_factor_secret":  "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("account_id = ?", accountID).Delete(&BackupCode{}).Error
	})
	if err != nil {
		return fmt.Errorf("disable two factor: %w", translate(err))
	}
	return nil
}

func (g *Gorm) ConsumeBackupCode(ctx context.Context, accountID, codeHash string) error {
	res := g.db.WithContext(ctx).
		Where("account_id = ? AND code_hash = ?", accountID, codeHash).
		Delete(&BackupCode{})
	if res.Error != nil {
		return fmt.Errorf("consume backup code: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) RoleByID(ctx context.Context, id string) (*Role, error) {
	var role Role
	err := g.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("role by id: %w", translate(err))
	}
	return &role, nil
}

func (g *Gorm) RoleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := g.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, "name = ?", name).Error
	if err != nil {
		return nil, fmt.Errorf("role by name: %w", translate(err))
	}
	return &role, nil
}

func (g *Gorm) CreateRefreshToken(ctx context.Context, token *RefreshToken) error {
	if err := g.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("create refresh token: %w", translate(err))
	}
	return nil
}

func (g *Gorm) RefreshTokenByValue(ctx context.Context, value string) (*RefreshToken, error) {
	var token RefreshToken
	err := g.db.WithContext(ctx).First(&token, "token = ?", value).Error
	if err != nil {
		return nil, fmt.Errorf("refresh token lookup: %w", translate(err))
	}
	return &token, nil
}

func (g *Gorm) RotateRefreshToken(ctx context.Context, oldValue string, next *RefreshToken) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&RefreshToken{}).
			Where("token = ? AND revoked = ? AND expires_at > ?", oldValue, false, time.Now()).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRevoked
		}
		return tx.Create(next).Error
	})
	if err != nil {
		if errors.Is(err, ErrRevoked) {
			return ErrRevoked
		}
		return fmt.Errorf("rotate refresh token: %w", translate(err))
	}
	return nil
}

func (g *Gorm) RevokeRefreshToken(ctx context.Context, value string) error {
	res := g.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("token = ? AND revoked = ?", value, false).
		Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) RevokeAccountRefreshTokens(ctx context.Context, accountID string) error {
	res := g.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("account_id = ? AND revoked = ?", accountID, false).
		Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke account refresh tokens: %w", translate(res.Error))
	}
	return nil
}

func (g *Gorm) AddBlacklistEntry(ctx context.Context, entry *BlacklistEntry) error {
	// Re-blacklisting the same token (double logout) is a no-op.
	err := g.db.WithContext(ctx).Create(entry).Error
	if err != nil && !errors.Is(translate(err), ErrDuplicate) {
		return fmt.Errorf("add blacklist entry: %w", translate(err))
	}
	return nil
}

func (g *Gorm) IsBlacklisted(ctx context.Context, token string, now time.Time) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&BlacklistEntry{}).
		Where("token = ? AND expires_at > ?", token, now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", translate(err))
	}
	return count > 0, nil
}

func (g *Gorm) PurgeExpired(ctx context.Context, now time.Time) error {
	db := g.db.WithContext(ctx)
	if err := db.Where("expires_at <= ?", now).Delete(&BlacklistEntry{}).Error; err != nil {
		return fmt.Errorf("purge blacklist: %w", translate(err))
	}
	if err := db.Where("expires_at <= ?", now).Delete(&RefreshToken{}).Error; err != nil {
		return fmt.Errorf("purge refresh tokens: %w", translate(err))
	}
	return nil
}
