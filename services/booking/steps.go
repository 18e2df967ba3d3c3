package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"snaplink/models"
	"snaplink/services/wizard"
)

// Booking wizard step indexes.
const (
	StepDate = iota + 1
	StepLocation
	StepService
	StepConcept
	StepReview
	StepConfirm
)

var (
	errDateRequired     = errors.New("pick an available date")
	errShootingType     = errors.New("shooting type must be studio or outdoor")
	errLocationRequired = errors.New("province and location are required")
	errServiceRequired  = errors.New("select a service")
	errUnknownService   = errors.New("selected service is no longer offered")
	errQuantityRequired = errors.New("quantity must be at least 1 for per-person services")
	errQuantityTooLarge = fmt.Errorf("quantity must be at most %d", models.MaxQuantity)
)

// Sequencer is the booking instance of the generic wizard.
type Sequencer = wizard.Sequencer[models.BookingDraft, models.BookingPatch]

// newSequencer builds the six booking steps. Validators read the session's
// fetched data at call time, so a retried fetch is seen without rebuilding.
func newSequencer(sess *Session, loc *time.Location) *Sequencer {
	return wizard.New[models.BookingDraft, models.BookingPatch](models.NewBookingDraft(),
		wizard.Step[models.BookingDraft]{Name: "date", Validate: func(d models.BookingDraft) error {
			if !NewGate(sess.Availability, loc).Allows(d) {
				return errDateRequired
			}
			return nil
		}},
		wizard.Step[models.BookingDraft]{Name: "location", Validate: validateLocation},
		wizard.Step[models.BookingDraft]{Name: "service", Validate: func(d models.BookingDraft) error {
			return validateService(d, sess.Services)
		}},
		wizard.Step[models.BookingDraft]{Name: "concept"},
		wizard.Step[models.BookingDraft]{Name: "review"},
		wizard.Step[models.BookingDraft]{Name: "confirm"},
	)
}

func validateLocation(d models.BookingDraft) error {
	if !d.ShootingType.Valid() {
		return errShootingType
	}
	if strings.TrimSpace(d.CustomLocation) == "" || strings.TrimSpace(d.Province) == "" {
		return errLocationRequired
	}
	return nil
}

func validateService(d models.BookingDraft, services []models.Service) error {
	if d.ServiceID == "" {
		return errServiceRequired
	}
	svc, ok := findService(services, d.ServiceID)
	if !ok {
		return errUnknownService
	}
	if svc.PerPerson() && d.Quantity < 1 {
		return errQuantityRequired
	}
	if d.Quantity > models.MaxQuantity {
		return errQuantityTooLarge
	}
	if _, err := CalculateQuote(svc, d.Quantity, nil); err != nil {
		return err
	}
	return nil
}

func findService(services []models.Service, id string) (models.Service, bool) {
	for _, s := range services {
		if s.ServiceID == id {
			return s, true
		}
	}
	return models.Service{}, false
}
