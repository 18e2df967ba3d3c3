package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/session"
	"snaplink/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Login signs in with the backend and keeps the returned pair server-side.
// The service token lives as long as the configured TTL, or less when the
// backend refresh token expires sooner.
func (s *DefaultAuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	creds, err := s.Backend.Login(ctx, req)
	if err != nil {
		s.logger().Info("Login rejected", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if exp, ok := utils.UnverifiedExpiry(creds.RefreshToken); ok {
		if left := time.Until(exp); left > 0 && left < ttl {
			ttl = left
		}
	}

	sess := AuthSession{
		ID:          uuid.New().String(),
		Email:       req.Email,
		Credentials: creds,
		CreatedAt:   time.Now(),
	}
	if err := s.Sessions.Create(ctx, sess.ID, sess); err != nil {
		return nil, fmt.Errorf("failed to store sign-in session: %w", err)
	}

	token, err := utils.GenerateToken(sess.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	s.logger().Info("User signed in", zap.String("authSession", sess.ID))
	return &LoginResult{Token: token, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (s *DefaultAuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.Delete(ctx, sessionID)
}

func (s *DefaultAuthService) Authenticate(ctx context.Context, token string) (string, error) {
	id, err := utils.ExtractIDFromToken(token)
	if err != nil {
		return "", err
	}
	var sess AuthSession
	if _, err := s.Sessions.Load(ctx, id, &sess); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrSessionExpired
		}
		return "", err
	}
	return id, nil
}

func (s *DefaultAuthService) Tokens(sessionID string) backend.TokenStore {
	return &sessionTokens{sessions: s.Sessions, id: sessionID}
}

// sessionTokens exposes the credentials inside an AuthSession as a TokenStore.
type sessionTokens struct {
	sessions session.Store
	id       string
}

func (t *sessionTokens) Load(ctx context.Context) (models.Credentials, error) {
	var sess AuthSession
	if _, err := t.sessions.Load(ctx, t.id, &sess); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return models.Credentials{}, nil
		}
		return models.Credentials{}, err
	}
	return sess.Credentials, nil
}

func (t *sessionTokens) Save(ctx context.Context, creds models.Credentials) error {
	var sess AuthSession
	version, err := t.sessions.Load(ctx, t.id, &sess)
	if err != nil {
		return err
	}
	sess.Credentials = creds
	_, err = t.sessions.Save(ctx, t.id, sess, version)
	return err
}

// Clear ends the sign-in; the user has to log in again.
func (t *sessionTokens) Clear(ctx context.Context) error {
	return t.sessions.Delete(ctx, t.id)
}
