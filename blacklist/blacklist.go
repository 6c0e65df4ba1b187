// Package blacklist records access tokens that must be rejected before
// their natural expiry.
//
// An entry's lifetime mirrors the token's own: once the token has expired
// it is harmless, so nothing is stored or reported past that point. Reads
// are fail-closed at the call site — a lookup error must be treated as
// "not trusted" by the authentication gate, never as "not blacklisted".
package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
)

// Service is consumed by the authentication gate and the logout path.
type Service interface {
	// Blacklist records the token until its own expiry. Blacklisting an
	// already-expired token is a successful no-op.
	Blacklist(ctx context.Context, accessToken, reason string) error
	// IsBlacklisted reports whether a live entry exists for the token.
	IsBlacklisted(ctx context.Context, accessToken string) (bool, error)
}

// StoreBacked keeps entries in the credential store alongside the rest of
// the session state.
type StoreBacked struct {
	tokens *token.Manager
	store  store.CredentialStore
	now    func() time.Time
}

// NewStoreBacked returns a Service over the credential store. The token
// manager is needed to decode each token's embedded expiry.
func NewStoreBacked(tokens *token.Manager, cs store.CredentialStore) *StoreBacked {
	return &StoreBacked{tokens: tokens, store: cs, now: time.Now}
}

func (s *StoreBacked) Blacklist(ctx context.Context, accessToken, reason string) error {
	accountID, expiry, err := s.tokens.ExtractExpiry(accessToken)
	if err != nil {
		return fmt.Errorf("decode token expiry: %w", err)
	}
	if !expiry.After(s.now()) {
		return nil
	}
	entry := &store.BlacklistEntry{
		Token:     accessToken,
		AccountID: accountID,
		Reason:    reason,
		ExpiresAt: expiry,
	}
	if err := s.store.AddBlacklistEntry(ctx, entry); err != nil {
		return fmt.Errorf("persist blacklist entry: %w", err)
	}
	return nil
}

func (s *StoreBacked) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	return s.store.IsBlacklisted(ctx, accessToken, s.now())
}
