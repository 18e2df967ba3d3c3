package models

import "time"

// SubmissionStatus is the outcome of the latest attempt to create a booking.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission journals every attempt to turn one draft into a booking,
// keyed by the draft's idempotency key.
type Submission struct {
	ID             string               `bson:"id" json:"id"`
	IdempotencyKey string               `bson:"idempotencyKey" json:"idempotencyKey"`
	SessionID      string               `bson:"sessionId" json:"sessionId"`
	Owner          string               `bson:"owner" json:"owner"`
	Request        CreateBookingRequest `bson:"request" json:"request"`
	Status         SubmissionStatus     `bson:"status" json:"status"`
	Attempts       int                  `bson:"attempts" json:"attempts"`
	LastError      string               `bson:"lastError,omitempty" json:"lastError,omitempty"`
	Booking        *Booking             `bson:"booking,omitempty" json:"booking,omitempty"`
	RemindedAt     *time.Time           `bson:"remindedAt,omitempty" json:"remindedAt,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}
