// Package token mints and verifies the two credential kinds of the session
// core: short-lived signed access tokens and long-lived opaque refresh
// tokens.
//
// Access tokens are self-contained JWTs carrying the account identity and
// role reference. Refresh tokens are unguessable random strings with no
// structure; the credential store is their only source of truth.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned for signature or structural failures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when an otherwise valid token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

const accessTokenType = "access"

// Config holds the signing secret and token lifetimes. The refresh lifetime
// must dominate the access lifetime; Validate enforces the ratio.
type Config struct {
	SigningSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

// DefaultConfig returns the standard lifetimes: 15 minute access tokens,
// 7 day refresh tokens.
func DefaultConfig(secret []byte) Config {
	return Config{
		SigningSecret: secret,
		Issuer:        "lexcrm",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Leeway:        30 * time.Second,
	}
}

// Validate rejects configurations that weaken the token model.
func (c Config) Validate() error {
	if len(c.SigningSecret) < 32 {
		return errors.New("signing secret must be at least 32 bytes")
	}
	if c.AccessTTL <= 0 {
		return errors.New("access TTL must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.Leeway < 0 || c.Leeway > 2*time.Minute {
		return errors.New("leeway must be between 0 and 2 minutes")
	}
	return nil
}

// AccessClaims is the payload of an access token. Subject carries the
// account identifier.
type AccessClaims struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	RoleID    string `json:"role_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager signs and parses access tokens. It is a pure function of its
// configuration and holds no mutable state; one instance serves the whole
// process.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL exposes the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL exposes the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// IssueAccessToken signs an HS256 access token for the given identity,
// expiring AccessTTL from now.
func (m *Manager) IssueAccessToken(accountID, email, username, roleID string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email:     email,
		Username:  username,
		RoleID:    roleID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.SigningSecret)
}

// VerifyAccessToken validates signature, structure and expiry. Expired
// tokens report ErrTokenExpired; every other failure reports
// ErrTokenInvalid. Blacklist status is deliberately not checked here — that
// is the caller's explicit second step.
func (m *Manager) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.SigningSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := tok.Claims.(*AccessClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != accessTokenType {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExtractExpiry decodes a token's expiry without requiring the token to
// still be live. Used when blacklisting: the blacklist entry inherits the
// token's own expiry. Signature must still be valid — an attacker must not
// be able to plant arbitrary-expiry entries.
func (m *Manager) ExtractExpiry(tokenStr string) (string, time.Time, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	tok, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.SigningSecret, nil
	})
	if err != nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*AccessClaims)
	if !ok || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}
