package models

// AvailabilityStatus is the booking state of one calendar day.
type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "available"
	AvailabilityBooked    AvailabilityStatus = "booked"
)

// AvailabilityEntry is one day of a photographer's calendar as served by the backend.
// AvailableDate is either YYYY-MM-DD or an RFC3339 timestamp.
type AvailabilityEntry struct {
	AvailabilityID string             `json:"availability_id"`
	AvailableDate  string             `json:"available_date"`
	Status         AvailabilityStatus `json:"status"`
}

// CalendarDay is the view of a normalised availability entry.
type CalendarDay struct {
	Date           string `json:"date"`
	AvailabilityID string `json:"availabilityId,omitempty"`
	Selectable     bool   `json:"selectable"`
}
