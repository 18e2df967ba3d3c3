package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized means the backend rejected the credentials and refreshing them failed.
// Stored credentials have been cleared when this is returned.
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a non-2xx answer from the backend, usually a business-rule rejection.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// TransportError means no usable response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether trying the same call again may succeed:
// transport failures, timeouts, 429 and 5xx answers.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// MessageOf returns the backend's user-facing message when there is one.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
