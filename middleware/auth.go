package middleware

import (
	"errors"
	"net/http"
	"strings"

	"snaplink/services/auth"
	"snaplink/services/backend"
	"snaplink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by JWTAuthMiddleware.
const (
	AuthSessionKey   = "authSessionID"
	BackendClientKey = "backendClient"
)

// JWTAuthMiddleware validates the service token and binds a backend client
// carrying the caller's credentials to the request.
func JWTAuthMiddleware(authSvc auth.AuthService, api *backend.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.JSONError(c, http.StatusUnauthorized, "Missing or invalid Authorization header", "")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		sessionID, err := authSvc.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrSessionExpired) {
				msg = err.Error()
			}
			zap.L().Debug("Token rejected", zap.Error(err))
			utils.JSONError(c, http.StatusUnauthorized, msg, "")
			return
		}

		c.Set(AuthSessionKey, sessionID)
		c.Set(BackendClientKey, api.WithTokens(authSvc.Tokens(sessionID)))
		c.Next()
	}
}

// AuthSessionID returns the sign-in session of an authenticated request.
func AuthSessionID(c *gin.Context) string {
	return c.GetString(AuthSessionKey)
}

// BackendClient returns the per-user backend client of an authenticated request.
func BackendClient(c *gin.Context) (*backend.Client, bool) {
	v, ok := c.Get(BackendClientKey)
	if !ok {
		return nil, false
	}
	client, ok := v.(*backend.Client)
	return client, ok
}
