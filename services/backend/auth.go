package backend

import (
	"context"
	"net/http"

	"snaplink/models"
)

// Login exchanges email and password for a credential pair.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.Credentials, error) {
	var creds models.Credentials
	err := c.do(ctx, http.MethodPost, "/auth/login", req, &creds, anonymous())
	return creds, err
}

// Refresh exchanges a refresh token for a new credential pair. The backend
// may omit the refresh token when it does not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	in := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var creds models.Credentials
	err := c.do(ctx, http.MethodPost, "/auth/refresh", in, &creds, anonymous())
	return creds, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisteredUser, error) {
	var u models.RegisteredUser
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &u, anonymous()); err != nil {
		return nil, err
	}
	return &u, nil
}
