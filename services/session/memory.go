package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store without expiry, for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string][]byte
	locks map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}, locks: map[string]bool{}}
}

func (s *MemoryStore) Create(_ context.Context, id string, v any) error {
	data, err := encode(v, 1)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; ok {
		return fmt.Errorf("session %s already exists", id)
	}
	s.items[id] = data
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string, v any) (int64, error) {
	s.mu.Lock()
	raw, ok := s.items[id]
	s.mu.Unlock()
	if !ok {
		return 0, ErrNotFound
	}
	return decode(raw, v)
}

func (s *MemoryStore) Save(_ context.Context, id string, v any, version int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	var current envelope
	if err := json.Unmarshal(raw, &current); err != nil {
		return 0, err
	}
	if current.Version != version {
		return 0, ErrConflict
	}
	data, err := encode(v, version+1)
	if err != nil {
		return 0, err
	}
	s.items[id] = data
	return version + 1, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, id string, _ time.Duration) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[id] {
		return nil, ErrLocked
	}
	s.locks[id] = true
	return func() {
		s.mu.Lock()
		delete(s.locks, id)
		s.mu.Unlock()
	}, nil
}

// Len reports how many sessions are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
