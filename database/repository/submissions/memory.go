package submissionsRepo

import (
	"context"
	"sync"
	"time"

	"snaplink/models"

	"github.com/google/uuid"
)

// MemorySubmissionRepo keeps the journal in process memory.
type MemorySubmissionRepo struct {
	mu   sync.Mutex
	subs map[string]models.Submission
}

func NewMemorySubmissionRepo() *MemorySubmissionRepo {
	return &MemorySubmissionRepo{subs: map[string]models.Submission{}}
}

func (r *MemorySubmissionRepo) FindByKey(_ context.Context, key string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (r *MemorySubmissionRepo) Begin(_ context.Context, sub models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	existing, ok := r.subs[sub.IdempotencyKey]
	if !ok {
		if sub.ID == "" {
			sub.ID = uuid.New().String()
		}
		sub.CreatedAt = now
		sub.Attempts = 0
		existing = sub
	}
	existing.Request = sub.Request
	existing.Status = models.SubmissionPending
	existing.Attempts++
	existing.UpdatedAt = now
	r.subs[sub.IdempotencyKey] = existing
	return nil
}

func (r *MemorySubmissionRepo) MarkSucceeded(_ context.Context, key string, booking models.Booking) error {
	return r.update(key, func(s *models.Submission) {
		s.Status = models.SubmissionSucceeded
		s.Booking = &booking
		s.LastError = ""
	})
}

func (r *MemorySubmissionRepo) MarkFailed(_ context.Context, key string, reason string) error {
	return r.update(key, func(s *models.Submission) {
		s.Status = models.SubmissionFailed
		s.LastError = reason
	})
}

func (r *MemorySubmissionRepo) MarkReminded(_ context.Context, key string, at time.Time) error {
	return r.update(key, func(s *models.Submission) { s.RemindedAt = &at })
}

func (r *MemorySubmissionRepo) update(key string, fn func(*models.Submission)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	if !ok {
		return ErrNotFound
	}
	fn(&sub)
	sub.UpdatedAt = time.Now()
	r.subs[key] = sub
	return nil
}
