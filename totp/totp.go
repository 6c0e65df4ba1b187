// Package totp implements the time-based two-factor verifier (RFC 6238)
// and the single-use backup codes that substitute for it.
//
// The package is pure computation: secrets and backup-code hashes are
// persisted by the credential store, and state transitions (pending,
// enabled, disabled) are orchestrated by the auth service.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20

// Config controls code shape and the verification window.
type Config struct {
	Issuer string
	Digits int
	Period int
	// Skew is the tolerance in time steps on either side of now. Two steps
	// at a 30 second period absorbs clock drift across the verification
	// window without widening the guessing surface meaningfully.
	Skew int
}

// DefaultConfig returns 6-digit codes on a 30 second period with a ±2 step
// tolerance window.
func DefaultConfig(issuer string) Config {
	return Config{
		Issuer: issuer,
		Digits: 6,
		Period: 30,
		Skew:   2,
	}
}

// Manager generates shared secrets and verifies submitted codes. Immutable
// after construction.
type Manager struct {
	config Config
}

// NewManager applies defaults for zero fields and returns a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}
	if cfg.Period <= 0 {
		cfg.Period = 30
	}
	if cfg.Skew < 0 {
		cfg.Skew = 0
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "lexcrm"
	}
	return &Manager{config: cfg}
}

// GenerateSecret returns a fresh 160-bit shared secret and its unpadded
// base32 encoding (the form authenticator apps consume).
func (m *Manager) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return raw, enc.EncodeToString(raw), nil
}

// DecodeSecret reverses the base32 encoding produced by GenerateSecret.
func DecodeSecret(secretBase32 string) ([]byte, error) {
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.DecodeString(strings.ToUpper(strings.TrimSpace(secretBase32)))
}

// ProvisionURI builds the otpauth:// payload encoded into the enrollment QR
// code for the given account label.
func (m *Manager) ProvisionURI(secretBase32, account string) string {
	label := url.PathEscape(m.config.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", m.config.Issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyCode checks a submitted code against the shared secret for every
// step within the tolerance window. Comparison is constant-time per
// candidate. A malformed code is a plain mismatch, not an error.
func (m *Manager) VerifyCode(secret []byte, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumeric(trimmed) {
		return false, nil
	}
	if len(secret) == 0 {
		return false, errors.New("empty totp secret")
	}

	baseCounter := now.Unix() / int64(m.config.Period)
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated := hotpCode(secret, counter, m.config.Digits)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// CodeAt computes the code for the given instant. Enrollment flows use it
// to show the expected code shape; tests use it as the generator half of
// VerifyCode.
func (m *Manager) CodeAt(secret []byte, at time.Time) string {
	return hotpCode(secret, at.Unix()/int64(m.config.Period), m.config.Digits)
}

// hotpCode implements RFC 4226 dynamic truncation over HMAC-SHA1.
func hotpCode(secret []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
