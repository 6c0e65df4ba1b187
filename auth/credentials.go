package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexcrm/lexcrm/audit"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/password"
	"github.com/lexcrm/lexcrm/store"
)

// ChangePassword re-verifies the current secret before storing the new
// one. Outstanding refresh tokens are revoked when the configuration says
// so; other devices keep their sessions otherwise.
func (s *Service) ChangePassword(ctx context.Context, accountID, current, next string) error {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	ok, err := s.hasher.Verify(current, acct.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.emit(ctx, audit.ActionPasswordChange, accountID, "", false, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}
	if err := password.Validate(next); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetPasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	if s.cfg.RevokeSessionsOnPasswordChange {
		if err := s.store.RevokeAccountRefreshTokens(ctx, accountID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}

	s.stats.Inc(metrics.PasswordChange)
	s.emit(ctx, audit.ActionPasswordChange, accountID, "", true, nil)
	return nil
}

// RequestPasswordReset issues a single-use reset code. The response shape
// is constant whether or not the email exists; only the audit trail and
// the notifier know the difference.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	s.stats.Inc(metrics.PasswordResetRequest)

	acct, err := s.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		s.log.Warn("reset request lookup failed", "error", err)
		return nil
	}
	if s.resetCodes == nil || s.notifier == nil {
		s.log.Warn("password reset requested but not configured", "account_id", acct.ID)
		return nil
	}

	code, err := s.resetCodes.Issue(ctx, acct.ID)
	if err != nil {
		s.log.Warn("reset code issue failed", "account_id", acct.ID, "error", err)
		return nil
	}
	if err := s.notifier.SendPasswordResetCode(ctx, acct.Email, code); err != nil {
		s.log.Warn("reset notification failed", "account_id", acct.ID, "error", err)
	}
	s.emit(ctx, audit.ActionPasswordReset, acct.ID, "", true, nil)
	return nil
}

// ConfirmPasswordReset redeems the code, stores the new password and
// revokes every outstanding refresh token: whoever requested the reset no
// longer trusts existing sessions.
func (s *Service) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if err := password.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	accountID, err := s.resetCodes.Consume(ctx, code)
	if err != nil {
		s.emit(ctx, audit.ActionPasswordReset, "", "", false, err)
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetPasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	if err := s.store.RevokeAccountRefreshTokens(ctx, accountID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.stats.Inc(metrics.PasswordResetConfirm)
	s.emit(ctx, audit.ActionPasswordReset, accountID, "", true, nil)
	return nil
}

// VerifyEmail redeems a verification code and flips the verified flag.
func (s *Service) VerifyEmail(ctx context.Context, code string) error {
	accountID, err := s.verifyCodes.Consume(ctx, code)
	if err != nil {
		return err
	}
	if err := s.store.MarkVerified(ctx, accountID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	s.emit(ctx, audit.ActionEmailVerified, accountID, "", true, nil)
	return nil
}
