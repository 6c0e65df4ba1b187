package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcrm/lexcrm/blacklist"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/password"
	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
	"github.com/lexcrm/lexcrm/totp"
)

const testPassword = "TestPassword123!"

type captureNotifier struct {
	verificationCode string
	resetCode        string
}

func (n *captureNotifier) SendVerificationCode(_ context.Context, _, code string) error {
	n.verificationCode = code
	return nil
}

func (n *captureNotifier) SendPasswordResetCode(_ context.Context, _, code string) error {
	n.resetCode = code
	return nil
}

type fixture struct {
	svc      *Service
	store    *store.Gorm
	tokens   *token.Manager
	twoFa    *totp.Manager
	list     blacklist.Service
	notifier *captureNotifier
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	cs, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, cs.Seed(context.Background()))

	hasher, err := password.NewHasher(password.Config{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16,
	})
	require.NoError(t, err)

	tokens, err := token.NewManager(token.DefaultConfig([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	twoFa := totp.NewManager(totp.DefaultConfig("lexcrm"))
	list := blacklist.NewStoreBacked(tokens, cs)
	notifier := &captureNotifier{}

	svc, err := NewService(cfg, Deps{
		Store:             cs,
		Hasher:            hasher,
		Tokens:            tokens,
		TwoFactor:         twoFa,
		Blacklist:         list,
		Notifier:          notifier,
		Stats:             metrics.NewRegistry(),
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter:           NewLoginLimiter(client, cfg.LoginMaxAttempts, cfg.LoginCooldown),
		ResetCodes:        NewResetCodeStore(client, cfg.ResetCodeTTL),
		VerificationCodes: NewVerificationCodeStore(client, cfg.VerificationCodeTTL),
	})
	require.NoError(t, err)

	return &fixture{svc: svc, store: cs, tokens: tokens, twoFa: twoFa, list: list, notifier: notifier, redis: mr}
}

func (f *fixture) register(t *testing.T, email string) *Session {
	t.Helper()
	session, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Username: "u-" + email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return session
}

func TestRegisterIssuesSanitizedSessionTokens(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")

	assert.NotEmpty(t, session.Account.ID)
	assert.Equal(t, "alice@firm.example", session.Account.Email)
	assert.Equal(t, "paralegal", session.Account.RoleName)
	assert.False(t, session.Account.TwoFactorEnabled)

	claims, err := f.tokens.VerifyAccessToken(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, claims.Subject)

	// The refresh token was persisted and the verification code sent.
	tok, err := f.store.RefreshTokenByValue(context.Background(), session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, tok.AccountID)
	assert.NotEmpty(t, f.notifier.verificationCode)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "alice@firm.example")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "alice@firm.example",
		Username: "someone-else",
		Password: testPassword,
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	f := newFixture(t, nil)
	for _, weak := range []string{"Short1!", "alllowercase123!", "NoSpecialChars123"} {
		_, err := f.svc.Register(context.Background(), RegisterInput{
			Email:    "bob@firm.example",
			Username: "bob",
			Password: weak,
		})
		assert.ErrorIs(t, err, ErrValidationFailed, weak)
	}
}

func TestLoginGenericFailureForUnknownAndWrongPassword(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "alice@firm.example")
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "nobody@firm.example", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "alice@firm.example", "WrongPassword123!", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveAccountIsDistinct(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	acct, err := f.store.AccountByID(ctx, session.Account.ID)
	require.NoError(t, err)
	acct.Active = false
	require.NoError(t, f.store.UpdateAccount(ctx, acct))

	_, err = f.svc.Login(ctx, "alice@firm.example", testPassword, "")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "alice@firm.example")
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "alice@firm.example", testPassword, "")
	require.NoError(t, err)
	require.NotNil(t, session.Account.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *session.Account.LastLoginAt, 5*time.Second)
}

func TestLoginRateLimiterLocksAndCoolsDown(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "alice@firm.example")
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, "alice@firm.example", "WrongPassword123!", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.svc.Login(ctx, "alice@firm.example", testPassword, "")
	assert.ErrorIs(t, err, ErrRateLimited)

	f.redis.FastForward(2 * time.Minute)
	_, err = f.svc.Login(ctx, "alice@firm.example", testPassword, "")
	assert.NoError(t, err)
}

func TestLoginSurvivesLimiterOutage(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "alice@firm.example")
	f.redis.Close()

	_, err := f.svc.Login(context.Background(), "alice@firm.example", testPassword, "")
	assert.NoError(t, err)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	rotated, err := f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	// Replaying the rotated token is the theft signal.
	_, err = f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The replacement still works.
	_, err = f.svc.Refresh(ctx, rotated.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshUnknownTokenIsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshExpiredToken(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")

	f.svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err := f.svc.Refresh(context.Background(), session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshInactiveAccount(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	acct, err := f.store.AccountByID(ctx, session.Account.ID)
	require.NoError(t, err)
	acct.Active = false
	require.NoError(t, f.store.UpdateAccount(ctx, acct))

	_, err = f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogoutEndsBothTokens(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	require.NoError(t, f.svc.Logout(ctx, session.Tokens.AccessToken, session.Tokens.RefreshToken))

	revoked, err := f.list.IsBlacklisted(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogoutIsLenient(t *testing.T) {
	f := newFixture(t, nil)
	// Garbage tokens, no session: logout still reports success.
	assert.NoError(t, f.svc.Logout(context.Background(), "garbage", "also-garbage"))
	assert.NoError(t, f.svc.Logout(context.Background(), "", ""))
}

func TestChangePasswordRevokesOutstandingSessions(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	const next = "EvenBetterPass456$"
	require.NoError(t, f.svc.ChangePassword(ctx, session.Account.ID, testPassword, next))

	_, err := f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.svc.Login(ctx, "alice@firm.example", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice@firm.example", next, "")
	assert.NoError(t, err)
}

func TestChangePasswordKeepsSessionsWhenConfigured(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.RevokeSessionsOnPasswordChange = false })
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	require.NoError(t, f.svc.ChangePassword(ctx, session.Account.ID, testPassword, "EvenBetterPass456$"))

	_, err := f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestChangePasswordRequiresCurrentSecret(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")

	err := f.svc.ChangePassword(context.Background(), session.Account.ID, "WrongPassword123!", "EvenBetterPass456$")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	// Unknown email: constant shape, no code issued.
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@firm.example"))
	assert.Empty(t, f.notifier.resetCode)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@firm.example"))
	require.NotEmpty(t, f.notifier.resetCode)

	const next = "FreshResetPass789#"
	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, f.notifier.resetCode, next))

	// Code is single-use, sessions are revoked, new password works.
	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(ctx, f.notifier.resetCode, next), ErrResetCodeInvalid)
	_, err := f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = f.svc.Login(ctx, "alice@firm.example", next, "")
	assert.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t, nil)
	session := f.register(t, "alice@firm.example")
	ctx := context.Background()

	require.NoError(t, f.svc.VerifyEmail(ctx, f.notifier.verificationCode))

	view, err := f.svc.Profile(ctx, session.Account.ID)
	require.NoError(t, err)
	assert.True(t, view.Verified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, f.notifier.verificationCode), ErrResetCodeInvalid)
}
