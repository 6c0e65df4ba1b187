package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcrm/lexcrm/auth"
	"github.com/lexcrm/lexcrm/blacklist"
	"github.com/lexcrm/lexcrm/crm"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/password"
	"github.com/lexcrm/lexcrm/rbac"
	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
	"github.com/lexcrm/lexcrm/totp"
)

const testPassword = "TestPassword123!"

type testEnv struct {
	router *gin.Engine
	store  *store.Gorm
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	list := blacklist.NewStoreBacked(tokens, cs)
	stats := metrics.NewRegistry()
	cfg := auth.DefaultConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc, err := auth.NewService(cfg, auth.Deps{
		Store:             cs,
		Hasher:            hasher,
		Tokens:            tokens,
		TwoFactor:         totp.NewManager(totp.DefaultConfig("lexcrm")),
		Blacklist:         list,
		Stats:             stats,
		Logger:            log,
		Limiter:           auth.NewLoginLimiter(client, cfg.LoginMaxAttempts, cfg.LoginCooldown),
		ResetCodes:        auth.NewResetCodeStore(client, cfg.ResetCodeTTL),
		VerificationCodes: auth.NewVerificationCodeStore(client, cfg.VerificationCodeTTL),
	})
	require.NoError(t, err)

	crmSvc, err := crm.NewService(cs.DB())
	require.NoError(t, err)

	enforcer := rbac.NewEnforcer(tokens, list, cs)
	_, router := New(authSvc, enforcer, crmSvc, stats, metrics.NewExporter(stats, nil), log)
	return &testEnv{router: router, store: cs}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerUser(t *testing.T, email string) *auth.Session {
	t.Helper()
	rec := e.do(t, "POST", "/auth/register", "", gin.H{
		"email":    email,
		"username": "u-" + email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return &session
}

func (e *testEnv) promote(t *testing.T, accountID, roleName string) {
	t.Helper()
	ctx := context.Background()
	role, err := e.store.RoleByName(ctx, roleName)
	require.NoError(t, err)
	acct, err := e.store.AccountByID(ctx, accountID)
	require.NoError(t, err)
	acct.RoleID = role.ID
	require.NoError(t, e.store.UpdateAccount(ctx, acct))
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "alice@firm.example")

	rec := env.do(t, "POST", "/auth/login", "", gin.H{
		"email": "alice@firm.example", "password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/auth/profile", session.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@firm.example")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice@firm.example")

	rec := env.do(t, "POST", "/auth/register", "", gin.H{
		"email": "alice@firm.example", "username": "other", "password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "POST", "/auth/register", "", gin.H{
		"email": "bob@firm.example", "username": "bob", "password": "weak",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "alice@firm.example")

	rec := env.do(t, "POST", "/auth/login", "", gin.H{
		"email": "alice@firm.example", "password": "WrongPassword123!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ctx := context.Background()
	acct, err := env.store.AccountByID(ctx, session.Account.ID)
	require.NoError(t, err)
	acct.Active = false
	require.NoError(t, env.store.UpdateAccount(ctx, acct))

	rec = env.do(t, "POST", "/auth/login", "", gin.H{
		"email": "alice@firm.example", "password": testPassword,
	})
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "alice@firm.example")

	rec := env.do(t, "POST", "/auth/refresh", "", gin.H{"refresh_token": session.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	// Reusing the rotated token is rejected.
	rec = env.do(t, "POST", "/auth/refresh", "", gin.H{"refresh_token": session.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesBearer(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "alice@firm.example")
	access := session.Tokens.AccessToken

	rec := env.do(t, "POST", "/auth/logout", access, gin.H{"refresh_token": session.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/auth/profile", access, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/auth/profile", "/api/clients"} {
		rec := env.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := env.do(t, "GET", "/auth/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCRMPermissionGating(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "para@firm.example")
	access := session.Tokens.AccessToken

	// Paralegals read clients but cannot create them: 403, not 401.
	rec := env.do(t, "GET", "/api/clients", access, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/clients", access, gin.H{"name": "Hargrove Industries"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An attorney can.
	env.promote(t, session.Account.ID, "attorney")
	login := env.do(t, "POST", "/auth/login", "", gin.H{
		"email": "para@firm.example", "password": testPassword,
	})
	require.Equal(t, http.StatusOK, login.Code)
	var fresh auth.Session
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &fresh))

	rec = env.do(t, "POST", "/api/clients", fresh.Tokens.AccessToken, gin.H{"name": "Hargrove Industries"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var client crm.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &client))

	rec = env.do(t, "GET", "/api/clients/"+client.ID, fresh.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/clients/unknown-id", fresh.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice@firm.example")

	rec := env.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lexcrm_register_success_total 1")
}
