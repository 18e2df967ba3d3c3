package models

// Photographer is the public profile of a photographer, reduced to what booking needs.
type Photographer struct {
	PhotographerID string `json:"photographer_id"`
	Slug           string `json:"slug"`
	FullName       string `json:"full_name"`
	Province       string `json:"province"`
	Address        string `json:"address"`
}

// UnitPerson marks services billed per attendee; quantity is required for them.
const UnitPerson = "person"

// Service is a package offered by a photographer.
type Service struct {
	ServiceID      string `json:"service_id"`
	PhotographerID string `json:"photographer_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Price          int64  `json:"price"`
	Unit           string `json:"unit"`
}

// PerPerson reports whether the service is billed per attendee.
func (s Service) PerPerson() bool {
	return s.Unit == UnitPerson
}
