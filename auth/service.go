// Package auth is the session orchestrator: the façade combining the
// credential store, password hasher, token manager, two-factor verifier
// and blacklist into atomic, auditable account operations.
//
// Every operation is an independent unit of work; no state is cached
// between calls and the store is the single source of truth. Operations
// that mutate tokens treat any mid-flight failure as total failure.
// Logout is the one deliberate exception: ending a session must always
// appear to succeed, so its sub-steps are best-effort and only logged.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexcrm/lexcrm/audit"
	"github.com/lexcrm/lexcrm/blacklist"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/notify"
	"github.com/lexcrm/lexcrm/password"
	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
	"github.com/lexcrm/lexcrm/totp"
)

// AccountView is the sanitized account representation returned to
// callers. Secret material never appears here.
type AccountView struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Active           bool       `json:"active"`
	Verified         bool       `json:"verified"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	RoleID           string     `json:"role_id"`
	RoleName         string     `json:"role_name,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
}

// TokenPair is one access/refresh issuance.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Session is the result of register, login and refresh.
type Session struct {
	Account AccountView `json:"account"`
	Tokens  TokenPair   `json:"tokens"`
}

// TwoFactorSetup is returned by SetupTwoFactor. The backup codes are
// shown exactly once; only their hashes persist.
type TwoFactorSetup struct {
	Secret       string   `json:"secret"`
	ProvisionURI string   `json:"provision_uri"`
	BackupCodes  []string `json:"backup_codes"`
}

// Deps are the collaborators the Service is built from. Store, Hasher,
// Tokens, TwoFactor and Blacklist are mandatory; the rest degrade
// gracefully when absent.
type Deps struct {
	Store     store.CredentialStore
	Hasher    *password.Hasher
	Tokens    *token.Manager
	TwoFactor *totp.Manager
	Blacklist blacklist.Service
	Notifier  notify.Notifier
	Auditor   *audit.Dispatcher
	Stats     *metrics.Registry
	Logger    *slog.Logger

	Limiter           *LoginLimiter
	ResetCodes        *CodeStore
	VerificationCodes *CodeStore
}

// Service implements the session lifecycle.
type Service struct {
	cfg       Config
	store     store.CredentialStore
	hasher    *password.Hasher
	tokens    *token.Manager
	twoFactor *totp.Manager
	list      blacklist.Service
	notifier  notify.Notifier
	auditor   *audit.Dispatcher
	stats     *metrics.Registry
	log       *slog.Logger

	limiter     *LoginLimiter
	resetCodes  *CodeStore
	verifyCodes *CodeStore

	// dummyHash is verified against when the email is unknown, keeping
	// login latency independent of account existence.
	dummyHash string
	now       func() time.Time
}

// NewService validates cfg and wires the orchestrator.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}
	switch {
	case deps.Store == nil:
		return nil, errors.New("credential store required")
	case deps.Hasher == nil:
		return nil, errors.New("password hasher required")
	case deps.Tokens == nil:
		return nil, errors.New("token manager required")
	case deps.TwoFactor == nil:
		return nil, errors.New("two-factor manager required")
	case deps.Blacklist == nil:
		return nil, errors.New("blacklist service required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	dummyHash, err := deps.Hasher.Hash("lexcrm-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prime dummy hash: %w", err)
	}

	return &Service{
		cfg:         cfg,
		store:       deps.Store,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		twoFactor:   deps.TwoFactor,
		list:        deps.Blacklist,
		notifier:    deps.Notifier,
		auditor:     deps.Auditor,
		stats:       deps.Stats,
		log:         deps.Logger,
		limiter:     deps.Limiter,
		resetCodes:  deps.ResetCodes,
		verifyCodes: deps.VerificationCodes,
		dummyHash:   dummyHash,
		now:         time.Now,
	}, nil
}

// Close drains the audit dispatcher.
func (s *Service) Close() {
	s.auditor.Close()
}

func (s *Service) emit(ctx context.Context, action, accountID, email string, success bool, failure error) {
	event := audit.Event{
		Timestamp: s.now().UTC(),
		Action:    action,
		AccountID: accountID,
		IP:        ClientIP(ctx),
		Success:   success,
	}
	if !success {
		event.Email = email
		if failure != nil {
			event.Error = failure.Error()
		}
	}
	s.auditor.Emit(ctx, event)
}

func (s *Service) issueSession(ctx context.Context, acct *store.Account) (*Session, error) {
	access, err := s.tokens.IssueAccessToken(acct.ID, acct.Email, acct.Username, acct.RoleID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	err = s.store.CreateRefreshToken(ctx, &store.RefreshToken{
		Token:     refresh,
		AccountID: acct.ID,
		ExpiresAt: s.now().Add(s.tokens.RefreshTTL()),
	})
	if err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &Session{
		Account: viewOf(acct),
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		},
	}, nil
}

func viewOf(acct *store.Account) AccountView {
	return AccountView{
		ID:               acct.ID,
		Email:            acct.Email,
		Username:         acct.Username,
		FirstName:        acct.FirstName,
		LastName:         acct.LastName,
		Active:           acct.Active,
		Verified:         acct.Verified,
		TwoFactorEnabled: acct.TwoFactorEnabled,
		RoleID:           acct.RoleID,
		RoleName:         acct.Role.Name,
		LastLoginAt:      acct.LastLoginAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && len(email) <= 255
}

func newAccountID() string { return uuid.NewString() }
