package booking

import (
	"context"
	"errors"
	"time"

	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/session"
	"snaplink/services/storage"
	"snaplink/services/wizard"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resource names a backend collection the wizard fetches on its own schedule.
type Resource string

const (
	ResourceAvailability Resource = "availability"
	ResourceServices     Resource = "services"
	ResourceDiscounts    Resource = "discounts"
)

// ParseResource maps a path segment to a Resource.
func ParseResource(raw string) (Resource, error) {
	switch r := Resource(raw); r {
	case ResourceAvailability, ResourceServices, ResourceDiscounts:
		return r, nil
	}
	return "", ErrUnknownResource
}

// Session is the persisted state of one booking wizard.
type Session struct {
	ID           string                            `json:"id"`
	Owner        string                            `json:"owner"`
	Slug         string                            `json:"slug"`
	Photographer models.Photographer               `json:"photographer"`
	Wizard       wizard.State[models.BookingDraft] `json:"wizard"`

	Availability   []models.AvailabilityEntry `json:"availability,omitempty"`
	Services       []models.Service           `json:"services,omitempty"`
	SavedDiscounts []models.SavedDiscount     `json:"savedDiscounts,omitempty"`
	Loaded         map[Resource]bool          `json:"loaded"`
	FetchErrors    map[Resource]string        `json:"fetchErrors,omitempty"`

	Discount       *models.Discount `json:"discount,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey"`
	LastBooking    *models.Booking  `json:"lastBooking,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	touched bool
}

// SessionView is what the client renders for the current step.
type SessionView struct {
	SessionID        string                 `json:"sessionId"`
	Step             int                    `json:"step"`
	StepName         string                 `json:"stepName"`
	Steps            []string               `json:"steps"`
	IsFinal          bool                   `json:"isFinal"`
	CanProceed       bool                   `json:"canProceed"`
	Missing          string                 `json:"missing,omitempty"`
	Draft            models.BookingDraft    `json:"draft"`
	Photographer     models.Photographer    `json:"photographer"`
	Quote            *Quote                 `json:"quote,omitempty"`
	Calendar         []models.CalendarDay   `json:"calendar"`
	Services         []models.Service       `json:"services,omitempty"`
	Discounts        []models.SavedDiscount `json:"discounts,omitempty"`
	SelectedDiscount *models.Discount       `json:"selectedDiscount,omitempty"`
	Errors           map[Resource]string    `json:"errors,omitempty"`
	LastBooking      *models.Booking        `json:"lastBooking,omitempty"`
}

// Start opens a wizard for the photographer at slug. The photographer must
// load; a failed availability fetch is kept on the session for a manual retry.
func (s *DefaultBookingWizardService) Start(ctx context.Context, api Backend, owner, slug string) (*SessionView, error) {
	photographer, err := api.GetPhotographer(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:             uuid.New().String(),
		Owner:          owner,
		Slug:           slug,
		Photographer:   *photographer,
		Loaded:         map[Resource]bool{},
		FetchErrors:    map[Resource]string{},
		IdempotencyKey: uuid.New().String(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_ = s.fetch(ctx, api, sess, ResourceAvailability)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seq := newSequencer(sess, s.loc())
	sess.Wizard = seq.Snapshot()
	if err := s.Sessions.Create(ctx, sess.ID, sess); err != nil {
		return nil, err
	}
	s.logger().Info("Booking wizard started",
		zap.String("sessionID", sess.ID), zap.String("slug", slug), zap.String("owner", owner))
	return s.view(sess, seq), nil
}

// Get returns the current view, loading any resource the current step needs
// and has not fetched yet.
func (s *DefaultBookingWizardService) Get(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, nil)
}

// Retry re-fetches one resource after a failure, or to refresh it.
func (s *DefaultBookingWizardService) Retry(ctx context.Context, api Backend, owner, sessionID string, resource Resource) (*SessionView, error) {
	if _, err := ParseResource(string(resource)); err != nil {
		return nil, err
	}
	return s.mutate(ctx, api, owner, sessionID, func(sess *Session, _ *Sequencer) error {
		delete(sess.FetchErrors, resource)
		return s.fetch(ctx, api, sess, resource)
	})
}

// SelectDate picks (or with a nil date, clears) the shoot date.
func (s *DefaultBookingWizardService) SelectDate(ctx context.Context, api Backend, owner, sessionID string, date *string) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, func(sess *Session, seq *Sequencer) error {
		d, err := NewGate(sess.Availability, s.loc()).Select(seq.Draft(), date, s.now())
		if err != nil {
			return err
		}
		seq.Replace(func(models.BookingDraft) models.BookingDraft { return d })
		return nil
	})
}

// Update merges user input into the draft and re-applies the rules derived
// from it: studio shoots use the photographer's address, flat-rate services
// are booked once and the price is recomputed.
func (s *DefaultBookingWizardService) Update(ctx context.Context, api Backend, owner, sessionID string, patch models.BookingPatch) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, func(sess *Session, seq *Sequencer) error {
		if patch.Empty() {
			return nil
		}
		if patch.ShootingType != nil && !patch.ShootingType.Valid() {
			return ErrInvalidShootingType
		}
		if patch.Quantity != nil && *patch.Quantity > models.MaxQuantity {
			return ErrInvalidQuantity
		}
		if patch.Illustration != nil && *patch.Illustration != "" {
			if err := storage.ValidateDataURI(*patch.Illustration); err != nil {
				return ErrInvalidIllustration
			}
		}
		if patch.ServiceID != nil && *patch.ServiceID != "" && sess.Loaded[ResourceServices] {
			if _, ok := findService(sess.Services, *patch.ServiceID); !ok {
				return ErrServiceNotFound
			}
		}

		prev := seq.Draft()
		seq.Update(patch)
		seq.Replace(func(d models.BookingDraft) models.BookingDraft {
			d = applyLocationRules(prev, d, patch, sess.Photographer)
			if svc, ok := findService(sess.Services, d.ServiceID); ok && !svc.PerPerson() {
				d.Quantity = models.DefaultQuantity
			}
			return d
		})

		if sess.Discount != nil && seq.Draft().ServiceID != prev.ServiceID {
			svc, ok := findService(sess.Services, seq.Draft().ServiceID)
			if !ok || CheckDiscount(*sess.Discount, svc, s.now()) != nil {
				sess.Discount = nil
			}
		}
		return nil
	})
}

func applyLocationRules(prev, d models.BookingDraft, patch models.BookingPatch, p models.Photographer) models.BookingDraft {
	switch {
	case d.ShootingType == models.ShootingStudio:
		d.Province = p.Province
		d.CustomLocation = p.Address
	case prev.ShootingType == models.ShootingStudio && d.ShootingType == models.ShootingOutdoor:
		if patch.Province == nil {
			d.Province = ""
		}
		if patch.CustomLocation == nil {
			d.CustomLocation = ""
		}
	}
	return d
}

// ApplyDiscount applies a code from the user's saved discounts, falling back
// to the backend for codes that are not saved.
func (s *DefaultBookingWizardService) ApplyDiscount(ctx context.Context, api Backend, owner, sessionID, code string) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, func(sess *Session, seq *Sequencer) error {
		svc, ok := findService(sess.Services, seq.Draft().ServiceID)
		if !ok {
			return ErrServiceRequired
		}
		if !sess.Loaded[ResourceDiscounts] {
			delete(sess.FetchErrors, ResourceDiscounts)
			if err := s.fetch(ctx, api, sess, ResourceDiscounts); err != nil {
				return err
			}
		}

		discount, ok := LookupDiscount(sess.SavedDiscounts, code)
		if !ok {
			remote, err := s.validateRemote(ctx, api, code, svc)
			if err != nil {
				return err
			}
			discount = remote
		}
		if err := CheckDiscount(discount, svc, s.now()); err != nil {
			return err
		}
		sess.Discount = &discount
		return nil
	})
}

func (s *DefaultBookingWizardService) validateRemote(ctx context.Context, api Backend, code string, svc models.Service) (models.Discount, error) {
	if code == "" {
		return models.Discount{}, ErrDiscountNotFound
	}
	res, err := api.ValidateDiscount(ctx, code, svc.ServiceID)
	switch {
	case backend.IsNotFound(err):
		return models.Discount{}, ErrDiscountNotFound
	case err != nil && !backend.IsRetryable(err) && backend.StatusOf(err) != 0:
		return models.Discount{}, newRejection(ErrDiscountRejected.Code, backend.MessageOf(err))
	case err != nil:
		return models.Discount{}, err
	}
	if !res.Valid {
		if res.Message != "" {
			return models.Discount{}, newRejection(ErrDiscountRejected.Code, res.Message)
		}
		return models.Discount{}, ErrDiscountRejected
	}
	return res.Discount, nil
}

func (s *DefaultBookingWizardService) ClearDiscount(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, func(sess *Session, _ *Sequencer) error {
		sess.Discount = nil
		return nil
	})
}

// Next advances one step when the current step validates.
func (s *DefaultBookingWizardService) Next(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, func(_ *Session, seq *Sequencer) error {
		return seq.Next()
	})
}

func (s *DefaultBookingWizardService) Prev(ctx context.Context, api Backend, owner, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, api, owner, sessionID, func(_ *Session, seq *Sequencer) error {
		seq.Prev()
		return nil
	})
}

// Abandon drops the session and its draft.
func (s *DefaultBookingWizardService) Abandon(ctx context.Context, owner, sessionID string) error {
	if _, err := s.load(ctx, owner, sessionID); err != nil {
		return err
	}
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger().Info("Booking wizard abandoned", zap.String("sessionID", sessionID))
	return nil
}

type loaded struct {
	sess    *Session
	version int64
}

// load fetches a session owned by owner. Someone else's session reads as missing.
func (s *DefaultBookingWizardService) load(ctx context.Context, owner, sessionID string) (loaded, error) {
	var sess Session
	version, err := s.Sessions.Load(ctx, sessionID, &sess)
	if err != nil {
		return loaded{}, err
	}
	if sess.Owner != owner {
		return loaded{}, session.ErrNotFound
	}
	if sess.Loaded == nil {
		sess.Loaded = map[Resource]bool{}
	}
	if sess.FetchErrors == nil {
		sess.FetchErrors = map[Resource]string{}
	}
	return loaded{sess: &sess, version: version}, nil
}

// mutate runs op against a restored sequencer and saves the result with a
// version check. Nothing is saved once ctx is done, so a request abandoned
// mid-fetch never overwrites newer state. The view is returned alongside a
// failed op so the caller can still render.
func (s *DefaultBookingWizardService) mutate(ctx context.Context, api Backend, owner, sessionID string, op func(*Session, *Sequencer) error) (*SessionView, error) {
	l, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	sess := l.sess
	seq := newSequencer(sess, s.loc())
	seq.Restore(sess.Wizard)

	var opErr error
	if op != nil {
		sess.touched = true
		opErr = op(sess, seq)
	}
	if api != nil {
		s.ensureLoaded(ctx, api, sess, seq.Current())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if sess.touched {
		s.reprice(sess, seq)
		sess.Wizard = seq.Snapshot()
		sess.UpdatedAt = s.now()
		_, err := s.Sessions.Save(ctx, sessionID, sess, l.version)
		switch {
		case op == nil && errors.Is(err, session.ErrConflict):
			// A concurrent request saved first; the lazy load is redone later.
		case err != nil:
			return nil, err
		}
	}
	return s.view(sess, seq), opErr
}

// ensureLoaded fetches what the step needs: services from the service step
// on, saved discounts from the review step on. A resource whose last fetch
// failed stays failed until Retry.
func (s *DefaultBookingWizardService) ensureLoaded(ctx context.Context, api Backend, sess *Session, step int) {
	lazy := func(r Resource) {
		if sess.Loaded[r] || sess.FetchErrors[r] != "" {
			return
		}
		_ = s.fetch(ctx, api, sess, r)
	}
	if step >= StepService {
		lazy(ResourceServices)
	}
	if step >= StepReview {
		lazy(ResourceDiscounts)
	}
}

func (s *DefaultBookingWizardService) fetch(ctx context.Context, api Backend, sess *Session, r Resource) error {
	sess.touched = true

	var err error
	switch r {
	case ResourceAvailability:
		var items []models.AvailabilityEntry
		if items, err = api.ListAvailability(ctx, sess.Slug); err == nil {
			sess.Availability = items
		}
	case ResourceServices:
		var items []models.Service
		if items, err = api.ListServices(ctx, sess.Slug); err == nil {
			sess.Services = items
		}
	case ResourceDiscounts:
		var items []models.SavedDiscount
		if items, err = api.ListSavedDiscounts(ctx); err == nil {
			sess.SavedDiscounts = items
		}
	default:
		return ErrUnknownResource
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		sess.Loaded[r] = false
		sess.FetchErrors[r] = backend.MessageOf(err)
		s.logger().Warn("Wizard fetch failed",
			zap.String("sessionID", sess.ID), zap.String("resource", string(r)),
			zap.Bool("retryable", backend.IsRetryable(err)), zap.Error(err))
		return err
	}
	sess.Loaded[r] = true
	delete(sess.FetchErrors, r)
	return nil
}

// quote prices the draft, or returns nil while no known service is selected.
func quote(sess *Session, d models.BookingDraft) *Quote {
	svc, ok := findService(sess.Services, d.ServiceID)
	if !ok {
		return nil
	}
	q, err := CalculateQuote(svc, d.Quantity, sess.Discount)
	if err != nil {
		return nil
	}
	return &q
}

func (s *DefaultBookingWizardService) reprice(sess *Session, seq *Sequencer) {
	seq.Replace(func(d models.BookingDraft) models.BookingDraft {
		q := quote(sess, d)
		if q == nil {
			d.TotalPrice = 0
			d.DiscountCode = ""
			return d
		}
		d.TotalPrice = q.TotalPrice
		d.DiscountCode = q.DiscountCode
		return d
	})
}

func (s *DefaultBookingWizardService) view(sess *Session, seq *Sequencer) *SessionView {
	d := seq.Draft()
	v := &SessionView{
		SessionID:        sess.ID,
		Step:             seq.Current(),
		StepName:         seq.CurrentStep().Name,
		Steps:            seq.Names(),
		IsFinal:          seq.IsFinal(),
		Draft:            d,
		Photographer:     sess.Photographer,
		Quote:            quote(sess, d),
		Calendar:         NewGate(sess.Availability, s.loc()).Calendar(),
		Services:         sess.Services,
		Discounts:        sess.SavedDiscounts,
		SelectedDiscount: sess.Discount,
		LastBooking:      sess.LastBooking,
	}
	if len(sess.FetchErrors) > 0 {
		v.Errors = sess.FetchErrors
	}
	if err := seq.Check(seq.Current()); err != nil {
		var stepErr *wizard.StepError
		if errors.As(err, &stepErr) {
			v.Missing = stepErr.Err.Error()
		} else {
			v.Missing = err.Error()
		}
	} else {
		v.CanProceed = true
	}
	return v
}
