package auth

import (
	"context"
	"errors"
	"time"

	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/session"

	"go.uber.org/zap"
)

// ErrSessionExpired means the token is well-formed but its sign-in session is gone.
var ErrSessionExpired = errors.New("sign-in session expired, please log in again")

// Authenticator signs users in against the backend.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (models.Credentials, error)
}

type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	// Authenticate validates a service token and returns its sign-in session id.
	Authenticate(ctx context.Context, token string) (string, error)
	// Tokens returns the backend credential store of a sign-in session.
	Tokens(sessionID string) backend.TokenStore
}

// AuthSession is the server-side half of a sign-in: the backend token pair
// never leaves the service.
type AuthSession struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	Credentials models.Credentials `json:"credentials"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type DefaultAuthService struct {
	Sessions session.Store
	Backend  Authenticator
	TokenTTL time.Duration
	Logger   *zap.Logger
}

func (s *DefaultAuthService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
