// Package config loads process configuration from the environment, with
// an optional .env file for development. Component packages keep their
// own Config structs; this package only gathers the raw values.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process-level configuration surface.
type Config struct {
	Env        string `env:"LEXCRM_ENV" envDefault:"development"`
	ListenAddr string `env:"LEXCRM_LISTEN_ADDR" envDefault:":8080"`

	DatabasePath string `env:"LEXCRM_DB_PATH" envDefault:"lexcrm.db"`
	// RedisAddr enables the login limiter and the reset/verification code
	// stores. Empty disables those features; the blacklist then lives in
	// the relational store.
	RedisAddr     string `env:"LEXCRM_REDIS_ADDR"`
	RedisPassword string `env:"LEXCRM_REDIS_PASSWORD"`

	SigningSecret string        `env:"LEXCRM_SIGNING_SECRET,notEmpty"`
	AccessTTL     time.Duration `env:"LEXCRM_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"LEXCRM_REFRESH_TTL" envDefault:"168h"`

	TOTPIssuer string `env:"LEXCRM_TOTP_ISSUER" envDefault:"LexCRM"`

	RevokeSessionsOnPasswordChange bool `env:"LEXCRM_REVOKE_ON_PASSWORD_CHANGE" envDefault:"true"`

	// AuditLogPath receives one JSON audit event per line. Empty keeps
	// auditing in-process only (events are dropped at the sink).
	AuditLogPath string `env:"LEXCRM_AUDIT_LOG"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if len(cfg.SigningSecret) < 32 {
		return nil, fmt.Errorf("LEXCRM_SIGNING_SECRET must be at least 32 bytes")
	}
	return cfg, nil
}
