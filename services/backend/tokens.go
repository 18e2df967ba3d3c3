package backend

import (
	"context"
	"sync"

	"snaplink/models"
)

// TokenStore holds the credentials of one signed-in user. Load returns zero
// credentials when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (models.Credentials, error)
	Save(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps credentials in process memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	creds models.Credentials
}

func NewMemoryTokenStore(creds models.Credentials) *MemoryTokenStore {
	return &MemoryTokenStore{creds: creds}
}

func (s *MemoryTokenStore) Load(context.Context) (models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, creds models.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = models.Credentials{}
	return nil
}
