package models

// ReminderPayload is the asynq payload of a booking reminder.
type ReminderPayload struct {
	BookingCode    string `json:"bookingCode"`
	IdempotencyKey string `json:"idempotencyKey"`
	ShootDate      string `json:"shootDate"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}
