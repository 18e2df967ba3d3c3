package booking

import (
	"context"
	"time"

	submissionsRepo "snaplink/database/repository/submissions"
	"snaplink/models"
	"snaplink/services/session"
	"snaplink/services/storage"
	"snaplink/services/tasks"

	"go.uber.org/zap"
)

// Backend is the part of the marketplace API the booking wizard calls. The
// caller passes a client bound to the current user's credentials.
type Backend interface {
	GetPhotographer(ctx context.Context, slug string) (*models.Photographer, error)
	ListAvailability(ctx context.Context, slug string) ([]models.AvailabilityEntry, error)
	ListServices(ctx context.Context, slug string) ([]models.Service, error)
	ListSavedDiscounts(ctx context.Context) ([]models.SavedDiscount, error)
	ValidateDiscount(ctx context.Context, code, serviceID string) (*models.DiscountValidation, error)
	CreateBooking(ctx context.Context, req models.CreateBookingRequest, idempotencyKey string) (*models.Booking, error)
	GetBooking(ctx context.Context, code string) (*models.Booking, error)
}

// BookingWizardService drives server-side booking wizard sessions.
type BookingWizardService interface {
	Start(ctx context.Context, api Backend, owner, slug string) (*SessionView, error)
	Get(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error)
	Retry(ctx context.Context, api Backend, owner, sessionID string, resource Resource) (*SessionView, error)
	SelectDate(ctx context.Context, api Backend, owner, sessionID string, date *string) (*SessionView, error)
	Update(ctx context.Context, api Backend, owner, sessionID string, patch models.BookingPatch) (*SessionView, error)
	ApplyDiscount(ctx context.Context, api Backend, owner, sessionID, code string) (*SessionView, error)
	ClearDiscount(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error)
	Next(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error)
	Prev(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error)
	Submit(ctx context.Context, api Backend, owner, sessionID string) (*SubmitResult, error)
	Abandon(ctx context.Context, owner, sessionID string) error
}

// DefaultBookingWizardService implements BookingWizardService.
type DefaultBookingWizardService struct {
	Sessions      session.Store
	Journal       submissionsRepo.SubmissionRepository
	Illustrations storage.IllustrationStore
	Reminders     tasks.ReminderScheduler
	Logger        *zap.Logger

	Location           *time.Location
	RevalidateDiscount bool
	ReminderLead       time.Duration
	SubmitLockTTL      time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *DefaultBookingWizardService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultBookingWizardService) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *DefaultBookingWizardService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
