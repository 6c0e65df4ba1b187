package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexcrm/lexcrm/auth"
)

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, fmt.Errorf("%w: malformed request body", auth.ErrValidationFailed))
		return false
	}
	return true
}

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

type loginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"two_factor_code"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.auth.Login(c.Request.Context(), req.Email, req.Password, req.TwoFactorCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleLogout(c *gin.Context) {
	var req refreshRequest
	// Body is optional; logout works with the bearer token alone.
	_ = c.ShouldBindJSON(&req)

	if err := s.auth.Logout(c.Request.Context(), bearerToken(c), req.RefreshToken); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (s *Server) handleProfile(c *gin.Context) {
	view, err := s.auth.Profile(c.Request.Context(), identityFrom(c).AccountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := s.auth.ChangePassword(c.Request.Context(), identityFrom(c).AccountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_changed"})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleTwoFactorSetup(c *gin.Context) {
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}
	setup, err := s.auth.SetupTwoFactor(c.Request.Context(), identityFrom(c).AccountID, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

type twoFactorEnableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (s *Server) handleTwoFactorEnable(c *gin.Context) {
	var req twoFactorEnableRequest
	if !bindJSON(c, &req) {
		return
	}
	err := s.auth.EnableTwoFactor(c.Request.Context(), identityFrom(c).AccountID, req.Password, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "two_factor_enabled"})
}

func (s *Server) handleTwoFactorDisable(c *gin.Context) {
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := s.auth.DisableTwoFactor(c.Request.Context(), identityFrom(c).AccountID, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "two_factor_disabled"})
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResetRequest(c *gin.Context) {
	var req resetRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	// Constant shape whether or not the email exists.
	c.JSON(http.StatusOK, gin.H{"status": "reset_requested"})
}

type resetConfirmRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleResetConfirm(c *gin.Context) {
	var req resetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.auth.ConfirmPasswordReset(c.Request.Context(), req.Code, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.auth.VerifyEmail(c.Request.Context(), req.Code); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "email_verified"})
}
