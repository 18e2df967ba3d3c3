// Package backend is the HTTP client of the marketplace REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snaplink/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	headerAuthorization  = "Authorization"
	headerIdempotencyKey = "Idempotency-Key"

	// maxErrorBody bounds how much of a failed response is read for its message.
	maxErrorBody = 64 << 10
)

// Client calls the backend on behalf of one user (or anonymously when it has
// no TokenStore). Clients derived with WithTokens share the transport and the
// refresh coalescing group.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	tokens  TokenStore
	refresh *singleflight.Group
}

// NewClient returns an anonymous client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		refresh: &singleflight.Group{},
	}
}

// WithTokens returns a client that authenticates with the credentials in store.
func (c *Client) WithTokens(store TokenStore) *Client {
	clone := *c
	clone.tokens = store
	return &clone
}

type requestOptions struct {
	idempotencyKey string
	anonymous      bool
}

type requestOption func(*requestOptions)

func withIdempotencyKey(key string) requestOption {
	return func(o *requestOptions) { o.idempotencyKey = key }
}

// anonymous skips the bearer token and the refresh flow (login, refresh, register).
func anonymous() requestOption {
	return func(o *requestOptions) { o.anonymous = true }
}

// do sends one logical call. A 401 triggers a single coalesced credential
// refresh and the request is retried once with the new access token.
func (c *Client) do(ctx context.Context, method, path string, in, out any, opts ...requestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("backend: failed to encode %s %s: %w", method, path, err)
		}
	}

	var creds models.Credentials
	if c.tokens != nil && !o.anonymous {
		var err error
		if creds, err = c.tokens.Load(ctx); err != nil {
			return fmt.Errorf("backend: failed to load credentials: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, body, creds.AccessToken, o)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && !o.anonymous {
		drain(resp)
		fresh, err := c.refreshCredentials(ctx, creds)
		if err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, body, fresh.AccessToken, o); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.clearCredentials(ctx)
			return fmt.Errorf("%w: %s %s rejected refreshed credentials", ErrUnauthorized, method, path)
		}
	}

	return c.decode(resp, method, path, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, accessToken string, o requestOptions) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(headerAuthorization, "Bearer "+accessToken)
	}
	if o.idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, o.idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	return resp, nil
}

func (c *Client) decode(resp *http.Response, method, path string, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: errorMessage(raw),
		}
		c.logger.Info("backend rejected request",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// refreshCredentials exchanges the refresh token once per stale credential
// set, however many requests hit 401 with it concurrently.
func (c *Client) refreshCredentials(ctx context.Context, stale models.Credentials) (models.Credentials, error) {
	if stale.RefreshToken == "" {
		c.clearCredentials(ctx)
		return models.Credentials{}, fmt.Errorf("%w: no refresh token", ErrUnauthorized)
	}

	v, err, shared := c.refresh.Do(stale.RefreshToken, func() (any, error) {
		// The shared refresh must not die with the request that started it.
		flightCtx := context.WithoutCancel(ctx)

		// Another flight may already have replaced the stale pair.
		current, err := c.tokens.Load(flightCtx)
		if err == nil && current.AccessToken != "" && current.AccessToken != stale.AccessToken {
			return current, nil
		}

		fresh, err := c.Refresh(flightCtx, stale.RefreshToken)
		if err != nil {
			return nil, err
		}
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = stale.RefreshToken
		}
		if err := c.tokens.Save(flightCtx, fresh); err != nil {
			return nil, fmt.Errorf("backend: failed to store refreshed credentials: %w", err)
		}
		return fresh, nil
	})
	if err != nil {
		c.logger.Warn("credential refresh failed", zap.Bool("shared", shared), zap.Error(err))
		c.clearCredentials(ctx)
		return models.Credentials{}, fmt.Errorf("%w: refresh failed: %v", ErrUnauthorized, err)
	}
	return v.(models.Credentials), nil
}

func (c *Client) clearCredentials(ctx context.Context) {
	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("failed to clear stored credentials", zap.Error(err))
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// errorMessage pulls a human message out of the usual error body shapes.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.Detail != "":
			return body.Detail
		case body.Error != "":
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
