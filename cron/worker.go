package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snaplink/config"
	submissionsRepo "snaplink/database/repository/submissions"
	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// BookingLookup fetches the current state of a booking.
type BookingLookup interface {
	GetBooking(ctx context.Context, code string) (*models.Booking, error)
}

// ReminderWorker delivers booking reminders queued at submission time.
type ReminderWorker struct {
	Journal  submissionsRepo.SubmissionRepository
	Bookings BookingLookup
	Logger   *zap.Logger
	Now      func() time.Time
}

func (w *ReminderWorker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// HandleReminder processes one booking:reminder task. A reminder already
// delivered or a booking no longer active is acknowledged without effect.
func (w *ReminderWorker) HandleReminder(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.ParseReminder(task)
	if err != nil {
		w.Logger.Error("Dropping reminder with invalid payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := w.Logger.With(zap.String("bookingCode", p.BookingCode), zap.String("idempotencyKey", p.IdempotencyKey))

	sub, err := w.Journal.FindByKey(ctx, p.IdempotencyKey)
	switch {
	case errors.Is(err, submissionsRepo.ErrNotFound):
		log.Warn("Reminder has no journaled submission")
	case err != nil:
		return fmt.Errorf("journal lookup: %w", err)
	case sub.RemindedAt != nil:
		log.Info("Reminder already delivered", zap.Time("remindedAt", *sub.RemindedAt))
		return nil
	}

	status := ""
	if sub != nil && sub.Booking != nil {
		status = sub.Booking.Status
	}
	if w.Bookings != nil {
		b, err := w.Bookings.GetBooking(ctx, p.BookingCode)
		switch {
		case err == nil:
			status = b.Status
		case backend.IsRetryable(err):
			return fmt.Errorf("refresh booking %s: %w", p.BookingCode, err)
		default:
			log.Info("Booking refresh unavailable, using journaled state", zap.Error(err))
		}
	}
	if status == "cancelled" || status == "rejected" {
		log.Info("Skipping reminder for inactive booking", zap.String("status", status))
		return nil
	}

	log.Info("Booking reminder",
		zap.String("shootDate", p.ShootDate),
		zap.String("title", p.Title),
		zap.String("body", p.Body),
		zap.String("status", status),
	)

	if sub != nil {
		if err := w.Journal.MarkReminded(ctx, p.IdempotencyKey, w.now()); err != nil {
			log.Error("Failed to record delivered reminder", zap.Error(err))
		}
	}
	return nil
}

// StartReminderWorker runs the asynq server in the background and returns
// it for shutdown.
func StartReminderWorker(w *ReminderWorker) *asynq.Server {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: w.Logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingReminder, w.HandleReminder)

	go func() {
		w.Logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				return
			}
			w.Logger.Warn("Reminder worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.Logger.Error("Reminder worker gave up, reminders will queue until restart")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	return srv
}
