package submissionsRepo

import (
	"context"
	"errors"
	"time"

	"snaplink/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoSubmissionRepo) FindByKey(ctx context.Context, key string) (*models.Submission, error) {
	var sub models.Submission
	err := r.coll.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Begin upserts the entry so retries of the same draft share one document.
func (r *mongoSubmissionRepo) Begin(ctx context.Context, sub models.Submission) error {
	now := time.Now()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"id":        sub.ID,
			"sessionId": sub.SessionID,
			"owner":     sub.Owner,
			"createdAt": now,
		},
		"$set": bson.M{
			"request":   sub.Request,
			"status":    models.SubmissionPending,
			"updatedAt": now,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"idempotencyKey": sub.IdempotencyKey}, update, options.Update().SetUpsert(true))
	return err
}

func (r *mongoSubmissionRepo) MarkSucceeded(ctx context.Context, key string, booking models.Booking) error {
	return r.set(ctx, key, bson.M{
		"status":    models.SubmissionSucceeded,
		"booking":   booking,
		"lastError": "",
	})
}

func (r *mongoSubmissionRepo) MarkFailed(ctx context.Context, key string, reason string) error {
	return r.set(ctx, key, bson.M{
		"status":    models.SubmissionFailed,
		"lastError": reason,
	})
}

func (r *mongoSubmissionRepo) MarkReminded(ctx context.Context, key string, at time.Time) error {
	return r.set(ctx, key, bson.M{"remindedAt": at})
}

func (r *mongoSubmissionRepo) set(ctx context.Context, key string, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"idempotencyKey": key}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
