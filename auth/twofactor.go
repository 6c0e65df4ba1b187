package auth

import (
	"context"
	"fmt"

	"github.com/lexcrm/lexcrm/audit"
	"github.com/lexcrm/lexcrm/totp"
)

// SetupTwoFactor generates a fresh shared secret and backup codes and
// persists them as pending. The enabled flag does not flip here; the
// account stays in the pending state until EnableTwoFactor confirms the
// authenticator works.
func (s *Service) SetupTwoFactor(ctx context.Context, accountID, pass string) (*TwoFactorSetup, error) {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	ok, err := s.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	_, secretBase32, err := s.twoFactor.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	codes, err := totp.NewBackupCodes()
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	hashes := make([]string, len(codes))
	display := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = totp.HashBackupCode(accountID, code)
		display[i] = totp.FormatBackupCode(code)
	}

	if err := s.store.SetPendingTwoFactor(ctx, accountID, secretBase32, hashes); err != nil {
		return nil, fmt.Errorf("persist pending secret: %w", err)
	}

	s.emit(ctx, audit.ActionTwoFactorSetup, accountID, "", true, nil)
	return &TwoFactorSetup{
		Secret:       secretBase32,
		ProvisionURI: s.twoFactor.ProvisionURI(secretBase32, acct.Email),
		BackupCodes:  display,
	}, nil
}

// EnableTwoFactor flips the enabled flag. Both checks are mandatory: the
// password proves account control, the code proves the authenticator was
// actually provisioned with the pending secret.
func (s *Service) EnableTwoFactor(ctx context.Context, accountID, pass, code string) error {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	ok, err := s.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if acct.TwoFactorSecret == "" {
		return fmt.Errorf("%w: no pending two-factor setup", ErrValidationFailed)
	}

	secret, err := totp.DecodeSecret(acct.TwoFactorSecret)
	if err != nil {
		return fmt.Errorf("decode pending secret: %w", err)
	}
	valid, err := s.twoFactor.VerifyCode(secret, code, s.now())
	if err != nil {
		return err
	}
	if !valid {
		s.emit(ctx, audit.ActionTwoFactorEnable, accountID, "", false, ErrTwoFactorInvalid)
		return ErrTwoFactorInvalid
	}

	if err := s.store.EnableTwoFactor(ctx, accountID); err != nil {
		return fmt.Errorf("enable two factor: %w", err)
	}
	s.emit(ctx, audit.ActionTwoFactorEnable, accountID, "", true, nil)
	return nil
}

// DisableTwoFactor clears the flag, secret and backup codes in one store
// transaction after re-verifying the password.
func (s *Service) DisableTwoFactor(ctx context.Context, accountID, pass string) error {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	ok, err := s.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.store.DisableTwoFactor(ctx, accountID); err != nil {
		return fmt.Errorf("disable two factor: %w", err)
	}
	s.emit(ctx, audit.ActionTwoFactorOff, accountID, "", true, nil)
	return nil
}
