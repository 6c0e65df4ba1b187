package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lexcrm/lexcrm/auth"
	"github.com/lexcrm/lexcrm/metrics"
	"github.com/lexcrm/lexcrm/rbac"
	"github.com/lexcrm/lexcrm/token"
)

const identityKey = "lexcrm.identity"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// clientIP forwards the caller's address to the service layer for audit
// events.
func clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// requireAuth runs the authentication gate and stores the identity.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := bearerToken(c)
		if bearer == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": errorBody{Code: "missing_token", Message: "bearer token required"},
			})
			return
		}

		identity, err := s.enforcer.Authenticate(c.Request.Context(), bearer)
		if err != nil {
			s.stats.Inc(metrics.AuthenticateDenied)
			switch {
			case errors.Is(err, rbac.ErrAccountInactive):
				writeError(c, auth.ErrAccountInactive)
			case errors.Is(err, token.ErrTokenExpired):
				writeError(c, auth.ErrTokenExpired)
			default:
				writeError(c, auth.ErrTokenInvalid)
			}
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// requirePermission gates a route on one rbac permission. Runs after
// requireAuth.
func (s *Server) requirePermission(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enforcer.Authorize(identityFrom(c), name) {
			s.stats.Inc(metrics.AuthorizeDenied)
			writeError(c, auth.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) *rbac.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*rbac.Identity)
	return identity
}
