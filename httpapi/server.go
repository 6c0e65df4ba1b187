// Package httpapi exposes the credential core and the CRM records over
// HTTP. Authentication routes are public; everything else sits behind the
// bearer middleware and, for CRM resources, a per-route permission.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexcrm/lexcrm/auth"
	"github.com/lexcrm/lexcrm/crm"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/rbac"
)

// Server holds the wired services behind the router.
type Server struct {
	auth     *auth.Service
	enforcer *rbac.Enforcer
	crm      *crm.Service
	stats    *metrics.Registry
	exporter *metrics.Exporter
	log      *slog.Logger
}

// New builds the Server and its gin router.
func New(authSvc *auth.Service, enforcer *rbac.Enforcer, crmSvc *crm.Service, stats *metrics.Registry, exporter *metrics.Exporter, log *slog.Logger) (*Server, *gin.Engine) {
	s := &Server{
		auth:     authSvc,
		enforcer: enforcer,
		crm:      crmSvc,
		stats:    stats,
		exporter: exporter,
		log:      log,
	}
	return s, s.router()
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), clientIP())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.exporter != nil {
		r.GET("/metrics", gin.WrapH(s.exporter.Handler()))
	}

	pub := r.Group("/auth")
	{
		pub.POST("/register", s.handleRegister)
		pub.POST("/login", s.handleLogin)
		pub.POST("/refresh", s.handleRefresh)
		pub.POST("/password/reset-request", s.handleResetRequest)
		pub.POST("/password/reset-confirm", s.handleResetConfirm)
		pub.POST("/verify-email", s.handleVerifyEmail)
	}

	priv := r.Group("/auth", s.requireAuth())
	{
		priv.POST("/logout", s.handleLogout)
		priv.GET("/profile", s.handleProfile)
		priv.POST("/change-password", s.handleChangePassword)
		priv.POST("/2fa/setup", s.handleTwoFactorSetup)
		priv.POST("/2fa/enable", s.handleTwoFactorEnable)
		priv.POST("/2fa/disable", s.handleTwoFactorDisable)
	}

	if s.crm != nil {
		api := r.Group("/api", s.requireAuth())
		s.mountCRM(api)
	}
	return r
}
