package handlers

import (
	"net/http"

	"snaplink/middleware"
	"snaplink/models"
	"snaplink/services/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	Service auth.AuthService
}

func NewAuthHandler(svc auth.AuthService) *AuthHandler {
	return &AuthHandler{Service: svc}
}

// LoginHandler handles POST /api/auth/login.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	result, err := h.Service.Login(c.Request.Context(), req)
	if err != nil {
		getLogger(c).Info("Login failed", zap.String("email", req.Email), zap.Error(err))
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LogoutHandler handles POST /api/auth/logout. It requires authentication.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	if err := h.Service.Logout(c.Request.Context(), middleware.AuthSessionID(c)); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
