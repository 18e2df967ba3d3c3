package models

import "time"

// CreateBookingRequest is the backend's booking-creation payload.
type CreateBookingRequest struct {
	PhotographerID  string       `json:"photographer_id"`
	ServiceID       string       `json:"service_id"`
	AvailabilityID  string       `json:"availability_id"`
	BookingDate     string       `json:"booking_date"`
	ShootingType    ShootingType `json:"shooting_type"`
	Province        string       `json:"province"`
	CustomLocation  string       `json:"custom_location"`
	Quantity        int          `json:"quantity"`
	Concept         string       `json:"concept,omitempty"`
	IllustrationURL string       `json:"illustration_url,omitempty"`
	DiscountCode    string       `json:"discount_code,omitempty"`
	TotalPrice      int64        `json:"total_price"`
}

// Booking is a booking as returned by the backend.
type Booking struct {
	BookingID      string    `json:"booking_id"`
	BookingCode    string    `json:"booking_code"`
	PhotographerID string    `json:"photographer_id"`
	CustomerID     string    `json:"customer_id"`
	ServiceID      string    `json:"service_id"`
	BookingDate    string    `json:"booking_date"`
	Status         string    `json:"status"`
	TotalPrice     int64     `json:"total_price"`
	CreatedAt      time.Time `json:"created_at"`
}
