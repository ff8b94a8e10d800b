package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TylerPac/SolaceStudio/internal/http/middleware"
	"github.com/TylerPac/SolaceStudio/internal/http/validation"
	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/shared/apperr"
)

// AuthService is the slice of the auth module the handler calls.
type AuthService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
	Login(ctx context.Context, username, password, ip string) (*users.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*users.AuthTokens, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthHandler struct {
	Svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler { return &AuthHandler{Svc: svc} }

type registerInput struct {
	Username string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var in registerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), users.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
	})
}

type loginInput struct {
	Username string `json:"username" binding:"required,max=32"`
	Password string `json:"password" binding:"required,max=128"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	toks, err := h.Svc.Login(c.Request.Context(), in.Username, in.Password, c.ClientIP())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toks)
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var in refreshInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	toks, err := h.Svc.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toks)
}

type tokenInput struct {
	Token string `json:"token" binding:"required"`
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var in tokenInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	if err := h.Svc.VerifyEmail(c.Request.Context(), in.Token); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

type emailInput struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var in emailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	if err := h.Svc.ResendVerification(c.Request.Context(), in.Email); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var in emailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	if err := h.Svc.RequestPasswordReset(c.Request.Context(), in.Email); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

type resetPasswordInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var in resetPasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}

	if err := h.Svc.ResetPassword(c.Request.Context(), in.Token, in.Password); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
