package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	submissionsRepo "snaplink/database/repository/submissions"
	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/session"
	"snaplink/services/storage"
	"snaplink/services/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSubmitLockTTL = 30 * time.Second

// SubmitResult is a created booking and the wizard after its reset.
type SubmitResult struct {
	Booking  models.Booking `json:"booking"`
	Replayed bool           `json:"replayed"`
	View     *SessionView   `json:"session"`
}

// Submit turns the draft into a booking. It runs at most once at a time per
// session and at most once per draft: a resubmit after a success that was
// never acknowledged returns the recorded booking instead of creating
// another. On failure the draft is kept for a user-initiated retry.
func (s *DefaultBookingWizardService) Submit(ctx context.Context, api Backend, owner, sessionID string) (*SubmitResult, error) {
	// Only the owner may take the lock; mutate checks ownership again under it.
	if _, err := s.load(ctx, owner, sessionID); err != nil {
		return nil, err
	}

	ttl := s.SubmitLockTTL
	if ttl <= 0 {
		ttl = defaultSubmitLockTTL
	}
	unlock, err := s.Sessions.Lock(ctx, sessionID, ttl)
	if errors.Is(err, session.ErrLocked) {
		return nil, ErrSubmissionInProgress
	}
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *SubmitResult
	view, err := s.mutate(ctx, api, owner, sessionID, func(sess *Session, seq *Sequencer) error {
		r, err := s.submit(ctx, api, sess, seq)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	result.View = view
	return result, nil
}

func (s *DefaultBookingWizardService) submit(ctx context.Context, api Backend, sess *Session, seq *Sequencer) (*SubmitResult, error) {
	if !seq.IsFinal() {
		return nil, ErrNotFinalStep
	}
	key := sess.IdempotencyKey
	log := s.logger().With(zap.String("sessionID", sess.ID), zap.String("idempotencyKey", key))

	prior, err := s.Journal.FindByKey(ctx, key)
	switch {
	case err == nil && prior.Status == models.SubmissionSucceeded && prior.Booking != nil:
		log.Info("Replaying recorded booking", zap.String("bookingCode", prior.Booking.BookingCode))
		booking := *prior.Booking
		s.scheduleReminder(ctx, sess, key, booking, seq.Draft().BookingDate)
		s.complete(sess, seq, booking)
		return &SubmitResult{Booking: booking, Replayed: true}, nil
	case err != nil && !errors.Is(err, submissionsRepo.ErrNotFound):
		return nil, &SubmissionError{Retryable: true, Err: fmt.Errorf("journal lookup: %w", err)}
	}

	if err := seq.Ready(); err != nil {
		return nil, err
	}

	d := seq.Draft()
	svc, _ := findService(sess.Services, d.ServiceID)

	if d.Illustration != "" && d.IllustrationURL == "" && s.Illustrations != nil {
		url, err := s.Illustrations.UploadIllustration(ctx, d.Illustration, key)
		if err != nil {
			log.Warn("Illustration upload failed", zap.Error(err))
			return nil, &SubmissionError{Retryable: !errors.Is(err, storage.ErrInvalidDataURI), Err: err}
		}
		seq.Replace(func(d models.BookingDraft) models.BookingDraft {
			d.IllustrationURL = url
			return d
		})
	}

	if s.RevalidateDiscount && sess.Discount != nil {
		if err := s.revalidateDiscount(ctx, api, sess, svc); err != nil {
			return nil, err
		}
	}

	req := buildRequest(sess, seq.Draft())
	if err := s.Journal.Begin(ctx, models.Submission{
		IdempotencyKey: key,
		SessionID:      sess.ID,
		Owner:          sess.Owner,
		Request:        req,
	}); err != nil {
		return nil, &SubmissionError{Retryable: true, Err: fmt.Errorf("journal begin: %w", err)}
	}

	booking, err := api.CreateBooking(ctx, req, key)
	if err != nil {
		if jerr := s.Journal.MarkFailed(context.WithoutCancel(ctx), key, err.Error()); jerr != nil {
			log.Error("Failed to journal submission failure", zap.Error(jerr))
		}
		log.Warn("Booking creation failed", zap.Bool("retryable", backend.IsRetryable(err)), zap.Error(err))
		return nil, &SubmissionError{Retryable: backend.IsRetryable(err), Err: err}
	}

	// The booking exists now; recording it must survive the caller going away.
	if err := s.Journal.MarkSucceeded(context.WithoutCancel(ctx), key, *booking); err != nil {
		log.Error("Failed to journal created booking", zap.String("bookingCode", booking.BookingCode), zap.Error(err))
	}
	log.Info("Booking created", zap.String("bookingCode", booking.BookingCode), zap.Int64("totalPrice", booking.TotalPrice))

	s.scheduleReminder(ctx, sess, key, *booking, req.BookingDate)
	s.complete(sess, seq, *booking)
	return &SubmitResult{Booking: *booking}, nil
}

func (s *DefaultBookingWizardService) revalidateDiscount(ctx context.Context, api Backend, sess *Session, svc models.Service) error {
	res, err := api.ValidateDiscount(ctx, sess.Discount.Code, svc.ServiceID)
	if err != nil {
		if backend.IsRetryable(err) || errors.Is(err, context.Canceled) {
			return &SubmissionError{Retryable: backend.IsRetryable(err), Err: err}
		}
		sess.Discount = nil
		return newRejection(ErrDiscountRejected.Code, backend.MessageOf(err))
	}
	if !res.Valid {
		sess.Discount = nil
		if res.Message != "" {
			return newRejection(ErrDiscountRejected.Code, res.Message)
		}
		return ErrDiscountRejected
	}
	return nil
}

func buildRequest(sess *Session, d models.BookingDraft) models.CreateBookingRequest {
	req := models.CreateBookingRequest{
		PhotographerID:  sess.Photographer.PhotographerID,
		ServiceID:       d.ServiceID,
		AvailabilityID:  d.AvailabilityID,
		BookingDate:     d.BookingDate,
		ShootingType:    d.ShootingType,
		Province:        d.Province,
		CustomLocation:  d.CustomLocation,
		Quantity:        d.Quantity,
		Concept:         d.Concept,
		IllustrationURL: d.IllustrationURL,
	}
	if q := quote(sess, d); q != nil {
		req.Quantity = q.Quantity
		req.DiscountCode = q.DiscountCode
		req.TotalPrice = q.TotalPrice
	}
	return req
}

// complete resets the wizard for the next booking. Saved discounts are
// dropped so their use counters are fetched fresh.
func (s *DefaultBookingWizardService) complete(sess *Session, seq *Sequencer, booking models.Booking) {
	seq.Reset()
	sess.LastBooking = &booking
	sess.Discount = nil
	sess.SavedDiscounts = nil
	sess.Loaded[ResourceDiscounts] = false
	delete(sess.FetchErrors, ResourceDiscounts)
	sess.IdempotencyKey = uuid.New().String()
}

func (s *DefaultBookingWizardService) scheduleReminder(ctx context.Context, sess *Session, key string, booking models.Booking, shootDate string) {
	if s.Reminders == nil {
		return
	}
	fireAt, ok := tasks.ReminderTime(shootDate, s.ReminderLead, s.loc(), s.now())
	if !ok {
		return
	}
	payload := models.ReminderPayload{
		BookingCode:    booking.BookingCode,
		IdempotencyKey: key,
		ShootDate:      shootDate,
		Title:          "Upcoming photo shoot",
		Body:           fmt.Sprintf("Your session %s with %s is on %s.", booking.BookingCode, sess.Photographer.FullName, shootDate),
	}
	if err := s.Reminders.ScheduleReminder(context.WithoutCancel(ctx), payload, fireAt); err != nil {
		s.logger().Error("Failed to schedule booking reminder",
			zap.String("bookingCode", booking.BookingCode), zap.Error(err))
	}
}
