package booking

import (
	"errors"
	"fmt"

	"snaplink/models"
)

// RejectionError is a business-rule rejection shown to the user as is.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRejection(code, msg string) *RejectionError {
	return &RejectionError{Code: code, Message: msg}
}

var (
	ErrDateUnavailable              = newRejection("dateUnavailable", "date not available")
	ErrInvalidDate                  = newRejection("invalidDate", "date must be YYYY-MM-DD")
	ErrServiceNotFound              = newRejection("serviceNotFound", "service is not offered by this photographer")
	ErrInvalidShootingType          = newRejection("invalidShootingType", "shooting type must be studio or outdoor")
	ErrInvalidIllustration          = newRejection("invalidIllustration", "illustration must be an image data URI")
	ErrInvalidQuantity              = newRejection("invalidQuantity", fmt.Sprintf("quantity must be between 1 and %d", models.MaxQuantity))
	ErrUnknownResource              = newRejection("unknownResource", "resource must be availability, services or discounts")
	ErrServiceRequired              = newRejection("serviceRequired", "select a service before applying a discount")
	ErrDiscountNotFound             = newRejection("discountNotFound", "discount code not found in your saved discounts")
	ErrDiscountPhotographerMismatch = newRejection("discountNotApplicable", "discount belongs to a different photographer")
	ErrDiscountExpired              = newRejection("discountExpired", "discount is not valid at this time")
	ErrDiscountExhausted            = newRejection("discountExhausted", "discount has no uses left")
	ErrDiscountRejected             = newRejection("discountRejected", "discount was rejected by the server")
	ErrNotFinalStep                 = newRejection("notFinalStep", "booking can only be submitted from the final step")
	ErrSubmissionInProgress         = newRejection("submissionInProgress", "a submission for this booking is already in progress")
)

// IsRejection reports whether err is a user-facing business rejection.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

// SubmissionError wraps a failed creation call. The draft is left intact.
type SubmissionError struct {
	Retryable bool
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("booking submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
