package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"snaplink/models"

	"github.com/hibiken/asynq"
)

const TypeBookingReminder = "booking:reminder"

// NewReminderTask builds the reminder task for a confirmed booking. The task
// ID is the submission's idempotency key so a replayed success cannot
// enqueue a second reminder.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(5),
	}
	if payload.IdempotencyKey != "" {
		opts = append(opts, asynq.TaskID("reminder:"+payload.IdempotencyKey))
	}
	return task, opts, nil
}

// ParseReminder decodes a reminder task payload.
func ParseReminder(task *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid reminder payload: %w", err)
	}
	return p, nil
}

// ReminderTime is the moment a reminder fires for a shoot on shootDate
// (YYYY-MM-DD in loc). ok is false when that moment is already past.
func ReminderTime(shootDate string, lead time.Duration, loc *time.Location, now time.Time) (time.Time, bool) {
	day, err := time.ParseInLocation("2006-01-02", shootDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	fireAt := day.Add(-lead)
	if !fireAt.After(now) {
		return time.Time{}, false
	}
	return fireAt, true
}

// ReminderScheduler enqueues booking reminders.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error
}

// AsynqScheduler enqueues reminders on the asynq queue.
type AsynqScheduler struct {
	client *asynq.Client
}

func NewAsynqScheduler(client *asynq.Client) *AsynqScheduler {
	return &AsynqScheduler{client: client}
}

func (s *AsynqScheduler) ScheduleReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error {
	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}
