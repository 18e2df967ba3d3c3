package backend

import (
	"context"
	"net/http"
	"net/url"

	"snaplink/models"
)

// CreateBooking submits a booking. The idempotency key lets the backend
// recognise a resubmission of the same draft.
func (c *Client) CreateBooking(ctx context.Context, req models.CreateBookingRequest, idempotencyKey string) (*models.Booking, error) {
	var b models.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &b, withIdempotencyKey(idempotencyKey)); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBooking fetches a booking by its human-readable code.
func (c *Client) GetBooking(ctx context.Context, code string) (*models.Booking, error) {
	var b models.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(code), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
