// Package session persists wizard sessions as versioned JSON documents.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound means the session never existed or its TTL ran out.
	ErrNotFound = errors.New("session not found or expired")
	// ErrConflict means another request saved the session after it was loaded.
	ErrConflict = errors.New("session was modified concurrently")
	// ErrLocked means another request holds the session's lock.
	ErrLocked = errors.New("session is busy")
)

// Store keeps sessions under string ids. Every successful Save bumps the
// version; saving with a stale version fails with ErrConflict.
type Store interface {
	Create(ctx context.Context, id string, v any) error
	Load(ctx context.Context, id string, v any) (version int64, err error)
	Save(ctx context.Context, id string, v any, version int64) (int64, error)
	Delete(ctx context.Context, id string) error
	// Lock takes a short exclusive lock on id; unlock releases it.
	Lock(ctx context.Context, id string, ttl time.Duration) (unlock func(), err error)
}

type envelope struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func encode(v any, version int64) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: version, Data: data})
}

func decode(raw []byte, v any) (int64, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, err
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return 0, err
	}
	return env.Version, nil
}
