package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexcrm/lexcrm/audit"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/password"
	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
	"github.com/lexcrm/lexcrm/totp"
)

func newRotatedToken(accountID string, expiresAt time.Time) (*store.RefreshToken, error) {
	value, err := token.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &store.RefreshToken{Token: value, AccountID: accountID, ExpiresAt: expiresAt}, nil
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account under the default role, issues the first
// token pair and triggers a best-effort verification notification.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrValidationFailed)
	}
	username := normalizeEmail(in.Username)
	if username == "" || len(username) > 64 {
		return nil, fmt.Errorf("%w: username required", ErrValidationFailed)
	}
	if err := password.Validate(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role, err := s.store.RoleByName(ctx, s.cfg.DefaultRoleName)
	if err != nil {
		return nil, fmt.Errorf("load default role: %w", err)
	}

	acct := &store.Account{
		ID:           newAccountID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Active:       true,
		RoleID:       role.ID,
		Role:         *role,
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.stats.Inc(metrics.RegisterDuplicate)
			s.emit(ctx, audit.ActionRegister, "", email, false, ErrDuplicateIdentity)
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	session, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}

	s.sendVerification(ctx, acct)
	s.stats.Inc(metrics.RegisterSuccess)
	s.emit(ctx, audit.ActionRegister, acct.ID, "", true, nil)
	return session, nil
}

// sendVerification is a side channel: its failure never fails the caller.
func (s *Service) sendVerification(ctx context.Context, acct *store.Account) {
	if s.notifier == nil || s.verifyCodes == nil {
		return
	}
	code, err := s.verifyCodes.Issue(ctx, acct.ID)
	if err != nil {
		s.log.Warn("verification code issue failed", "account_id", acct.ID, "error", err)
		return
	}
	if err := s.notifier.SendVerificationCode(ctx, acct.Email, code); err != nil {
		s.log.Warn("verification notification failed", "account_id", acct.ID, "error", err)
	}
}

// Login authenticates email+password, and the second factor when the
// account has one enabled. Tokens are never issued on password success
// alone for a two-factor account.
func (s *Service) Login(ctx context.Context, email, pass, twoFactorCode string) (*Session, error) {
	email = normalizeEmail(email)
	ip := ClientIP(ctx)

	if err := s.limiter.Check(ctx, email, ip); err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.stats.Inc(metrics.LoginRateLimited)
			s.emit(ctx, audit.ActionLogin, "", email, false, ErrRateLimited)
			return nil, ErrRateLimited
		}
		// Limiter outage must not lock the firm out.
		s.log.Warn("login limiter unavailable", "error", err)
	}

	acct, err := s.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing cost as a real verification so the
			// response shape and timing do not reveal account existence.
			_, _ = s.hasher.Verify(pass, s.dummyHash)
			return nil, s.failLogin(ctx, email, ip, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.failLogin(ctx, email, ip, ErrInvalidCredentials)
	}
	if !acct.Active {
		s.stats.Inc(metrics.LoginFailure)
		s.emit(ctx, audit.ActionLogin, acct.ID, email, false, ErrAccountInactive)
		return nil, ErrAccountInactive
	}

	if acct.TwoFactorEnabled {
		if twoFactorCode == "" {
			s.stats.Inc(metrics.TwoFactorRequired)
			return nil, ErrTwoFactorRequired
		}
		if err := s.verifySecondFactor(ctx, acct, twoFactorCode); err != nil {
			s.stats.Inc(metrics.TwoFactorFailure)
			return nil, s.failLogin(ctx, email, ip, err)
		}
	}

	s.upgradeHashIfNeeded(ctx, acct, pass)

	now := s.now()
	if err := s.store.TouchLastLogin(ctx, acct.ID, now); err != nil {
		s.log.Warn("last-login update failed", "account_id", acct.ID, "error", err)
	} else {
		acct.LastLoginAt = &now
	}
	if err := s.limiter.Reset(ctx, email, ip); err != nil {
		s.log.Warn("login limiter reset failed", "error", err)
	}

	session, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	s.stats.Inc(metrics.LoginSuccess)
	s.emit(ctx, audit.ActionLogin, acct.ID, "", true, nil)
	return session, nil
}

func (s *Service) failLogin(ctx context.Context, email, ip string, cause error) error {
	if err := s.limiter.RecordFailure(ctx, email, ip); err != nil {
		s.log.Warn("login limiter record failed", "error", err)
	}
	s.stats.Inc(metrics.LoginFailure)
	s.emit(ctx, audit.ActionLogin, "", email, false, cause)
	return cause
}

// verifySecondFactor accepts a TOTP code or, failing that, a single-use
// backup code. A wrong TOTP code never consumes a backup code: the two
// inputs have disjoint shapes, and backup consumption only happens in the
// path that accepts it.
func (s *Service) verifySecondFactor(ctx context.Context, acct *store.Account, code string) error {
	secret, err := totp.DecodeSecret(acct.TwoFactorSecret)
	if err != nil {
		return fmt.Errorf("decode stored secret: %w", err)
	}
	ok, err := s.twoFactor.VerifyCode(secret, code, s.now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	canonical := totp.CanonicalizeBackupCode(code)
	if len(canonical) == totp.BackupCodeLength {
		hash := totp.HashBackupCode(acct.ID, canonical)
		switch err := s.store.ConsumeBackupCode(ctx, acct.ID, hash); {
		case err == nil:
			s.stats.Inc(metrics.BackupCodeUsed)
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}
	return ErrTwoFactorInvalid
}

// upgradeHashIfNeeded transparently re-hashes on login when the stored
// parameters are weaker than the current configuration.
func (s *Service) upgradeHashIfNeeded(ctx context.Context, acct *store.Account, pass string) {
	needs, err := s.hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return
	}
	if err := s.store.SetPasswordHash(ctx, acct.ID, hash); err != nil {
		s.log.Warn("hash upgrade failed", "account_id", acct.ID, "error", err)
	}
}

// Refresh rotates the presented refresh token and mints a new access
// token. Presenting an already-rotated token is the reuse signal and
// fails with ErrTokenRevoked.
func (s *Service) Refresh(ctx context.Context, refreshValue string) (*Session, error) {
	current, err := s.store.RefreshTokenByValue(ctx, refreshValue)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.stats.Inc(metrics.RefreshFailure)
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	now := s.now()
	if current.Revoked {
		s.stats.Inc(metrics.RefreshReuseDetected)
		s.emit(ctx, audit.ActionRefresh, current.AccountID, "", false, ErrTokenRevoked)
		return nil, ErrTokenRevoked
	}
	if !now.Before(current.ExpiresAt) {
		s.stats.Inc(metrics.RefreshFailure)
		return nil, ErrTokenExpired
	}

	acct, err := s.store.AccountByID(ctx, current.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !acct.Active {
		s.stats.Inc(metrics.RefreshFailure)
		return nil, ErrAccountInactive
	}

	next, err := newRotatedToken(current.AccountID, now.Add(s.tokens.RefreshTTL()))
	if err != nil {
		return nil, err
	}
	if err := s.store.RotateRefreshToken(ctx, refreshValue, next); err != nil {
		if errors.Is(err, store.ErrRevoked) {
			// A concurrent rotation won the conditional update.
			s.stats.Inc(metrics.RefreshReuseDetected)
			s.emit(ctx, audit.ActionRefresh, current.AccountID, "", false, ErrTokenRevoked)
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := s.tokens.IssueAccessToken(acct.ID, acct.Email, acct.Username, acct.RoleID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.stats.Inc(metrics.RefreshSuccess)
	s.emit(ctx, audit.ActionRefresh, acct.ID, "", true, nil)
	return &Session{
		Account: viewOf(acct),
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: next.Token,
			ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		},
	}, nil
}

// Logout blacklists the access token and revokes the refresh token.
// Both sub-steps are best-effort: a client must always be able to end a
// broken session, so failures are logged and audited but never surfaced.
func (s *Service) Logout(ctx context.Context, accessToken, refreshValue string) error {
	var accountID string
	if accessToken != "" {
		if claims, err := s.tokens.VerifyAccessToken(accessToken); err == nil {
			accountID = claims.Subject
		}
		if err := s.list.Blacklist(ctx, accessToken, "logout"); err != nil {
			s.log.Warn("logout blacklist failed", "error", err)
		} else {
			s.stats.Inc(metrics.TokenBlacklisted)
		}
	}
	if refreshValue != "" {
		err := s.store.RevokeRefreshToken(ctx, refreshValue)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("logout refresh revoke failed", "error", err)
		}
	}
	s.stats.Inc(metrics.Logout)
	s.emit(ctx, audit.ActionLogout, accountID, "", true, nil)
	return nil
}

// Profile returns the sanitized account view.
func (s *Service) Profile(ctx context.Context, accountID string) (*AccountView, error) {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	view := viewOf(acct)
	return &view, nil
}
