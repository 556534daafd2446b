package handler

import (
	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/adapter/http/middleware"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	pair, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Username:       req.Username,
		Password:       req.Password,
		RepeatPassword: req.RepeatPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTokenPairResponse(pair))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	pair, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTokenPairResponse(pair))
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := c.GetHeader(middleware.HeaderRefreshToken)
	if token == "" {
		response.Unauthorized(c, apperror.ErrInvalidRefreshToken())
		return
	}

	pair, err := h.authSvc.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTokenPairResponse(pair))
}

// Logout handles DELETE /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetHeader(middleware.HeaderRefreshToken)
	if token == "" {
		response.Unauthorized(c, apperror.ErrInvalidRefreshToken())
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
