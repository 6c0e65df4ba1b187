package auth

import (
	"errors"
	"time"
)

// Config tunes the session orchestrator. Zero values are filled by
// DefaultConfig; Validate runs at construction.
type Config struct {
	// DefaultRoleName is assigned to newly registered accounts.
	DefaultRoleName string
	// RevokeSessionsOnPasswordChange controls whether a password change
	// invalidates every outstanding refresh token. On is the safer
	// contract; off keeps other devices logged in.
	RevokeSessionsOnPasswordChange bool
	// ResetCodeTTL bounds how long a password reset code stays usable.
	ResetCodeTTL time.Duration
	// VerificationCodeTTL bounds email verification codes.
	VerificationCodeTTL time.Duration
	// LoginMaxAttempts failed logins per identifier+IP start the cooldown.
	LoginMaxAttempts int
	// LoginCooldown is the counting window and lockout duration.
	LoginCooldown time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultRoleName:                "paralegal",
		RevokeSessionsOnPasswordChange: true,
		ResetCodeTTL:                   30 * time.Minute,
		VerificationCodeTTL:            24 * time.Hour,
		LoginMaxAttempts:               5,
		LoginCooldown:                  time.Minute,
	}
}

// Validate rejects unusable configurations.
func (c Config) Validate() error {
	if c.DefaultRoleName == "" {
		return errors.New("default role name required")
	}
	if c.ResetCodeTTL <= 0 {
		return errors.New("reset code TTL must be positive")
	}
	if c.VerificationCodeTTL <= 0 {
		return errors.New("verification code TTL must be positive")
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.New("login max attempts must be positive")
	}
	if c.LoginCooldown <= 0 {
		return errors.New("login cooldown must be positive")
	}
	return nil
}
