package token

import (
	"crypto/rand"
	"encoding/base64"
)

// 48 random bytes encode to a 64-character URL-safe string.
const refreshTokenRawSize = 48

// NewRefreshToken returns a cryptographically random, URL-safe opaque
// string. It carries no structure and is never signed; uniqueness is
// enforced by the credential store's primary key, not by the generator.
func NewRefreshToken() (string, error) {
	raw := make([]byte, refreshTokenRawSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
