package submissionsRepo

import (
	"context"
	"errors"
	"time"

	"snaplink/database"
	"snaplink/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no submission carries the key.
var ErrNotFound = errors.New("submission not found")

type SubmissionRepository interface {
	// FindByKey returns the submission for an idempotency key or ErrNotFound.
	FindByKey(ctx context.Context, key string) (*models.Submission, error)
	// Begin records a new attempt as pending, creating the entry on first use.
	Begin(ctx context.Context, sub models.Submission) error
	MarkSucceeded(ctx context.Context, key string, booking models.Booking) error
	MarkFailed(ctx context.Context, key string, reason string) error
	MarkReminded(ctx context.Context, key string, at time.Time) error
}

type mongoSubmissionRepo struct {
	coll *mongo.Collection
}

// NewMongoSubmissionRepo returns a new SubmissionRepository instance using MongoDB.
func NewMongoSubmissionRepo() SubmissionRepository {
	return &mongoSubmissionRepo{
		coll: database.Database().Collection(collectionName),
	}
}

const collectionName = "booking_submissions"
