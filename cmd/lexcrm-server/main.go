// lexcrm-server is the LexCRM backend: credential and session lifecycle
// plus the firm's CRM records over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexcrm/lexcrm/audit"
	"github.com/lexcrm/lexcrm/auth"
	"github.com/lexcrm/lexcrm/blacklist"
	"github.com/lexcrm/lexcrm/config"
	"github.com/lexcrm/lexcrm/crm"
	"github.com/lexcrm/lexcrm/httpapi"
	"github.com/lexcrm/lexcrm/internal/logging"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/notify"
	"github.com/lexcrm/lexcrm/password"
	"github.com/lexcrm/lexcrm/rbac"
	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
	"github.com/lexcrm/lexcrm/totp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("development").Fatal("configuration", "error", err)
	}
	log := logging.New(cfg.Env)

	cs, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("open store", "error", err)
	}
	ctx := context.Background()
	if err := cs.Seed(ctx); err != nil {
		log.Fatal("seed roles", "error", err)
	}

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		log.Fatal("password hasher", "error", err)
	}

	tokenCfg := token.DefaultConfig([]byte(cfg.SigningSecret))
	tokenCfg.AccessTTL = cfg.AccessTTL
	tokenCfg.RefreshTTL = cfg.RefreshTTL
	tokens, err := token.NewManager(tokenCfg)
	if err != nil {
		log.Fatal("token manager", "error", err)
	}

	stats := metrics.NewRegistry()

	var auditSink audit.Sink = audit.NoOpSink{}
	if cfg.AuditLogPath != "" {
		f, err := os.OpenFile(cfg.AuditLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Fatal("open audit log", "error", err)
		}
		defer f.Close()
		auditSink = audit.NewJSONWriterSink(f)
	}
	auditor := audit.NewDispatcher(audit.DefaultConfig(), auditSink)
	defer auditor.Close()

	authCfg := auth.DefaultConfig()
	authCfg.RevokeSessionsOnPasswordChange = cfg.RevokeSessionsOnPasswordChange

	deps := auth.Deps{
		Store:     cs,
		Hasher:    hasher,
		Tokens:    tokens,
		TwoFactor: totp.NewManager(totp.DefaultConfig(cfg.TOTPIssuer)),
		Blacklist: blacklist.NewStoreBacked(tokens, cs),
		Notifier:  notify.NewLogNotifier(log.Logger),
		Auditor:   auditor,
		Stats:     stats,
		Logger:    log.Logger,
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		}
		deps.Blacklist = blacklist.NewRedis(tokens, client)
		deps.Limiter = auth.NewLoginLimiter(client, authCfg.LoginMaxAttempts, authCfg.LoginCooldown)
		deps.ResetCodes = auth.NewResetCodeStore(client, authCfg.ResetCodeTTL)
		deps.VerificationCodes = auth.NewVerificationCodeStore(client, authCfg.VerificationCodeTTL)
	}

	authSvc, err := auth.NewService(authCfg, deps)
	if err != nil {
		log.Fatal("auth service", "error", err)
	}

	crmSvc, err := crm.NewService(cs.DB())
	if err != nil {
		log.Fatal("crm service", "error", err)
	}

	enforcer := rbac.NewEnforcer(tokens, deps.Blacklist, cs)
	exporter := metrics.NewExporter(stats, auditor)
	_, router := httpapi.New(authSvc, enforcer, crmSvc, stats, exporter, log.Logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", "error", err)
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
