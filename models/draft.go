package models

// ShootingType selects where a session takes place.
type ShootingType string

const (
	ShootingStudio  ShootingType = "studio"
	ShootingOutdoor ShootingType = "outdoor"
)

// Valid reports whether t is a known shooting type.
func (t ShootingType) Valid() bool {
	return t == ShootingStudio || t == ShootingOutdoor
}

// DefaultQuantity is used whenever a draft carries no usable quantity.
const DefaultQuantity = 1

// MaxQuantity bounds the head count of a per-person booking.
const MaxQuantity = 100

// BookingDraft is the in-progress booking accumulated by the booking wizard.
type BookingDraft struct {
	BookingDate     string       `json:"booking_date,omitempty"` // YYYY-MM-DD
	AvailabilityID  string       `json:"availability_id,omitempty"`
	ShootingType    ShootingType `json:"shooting_type,omitempty"`
	Province        string       `json:"province,omitempty"`
	CustomLocation  string       `json:"custom_location,omitempty"`
	ServiceID       string       `json:"service_id,omitempty"`
	Quantity        int          `json:"quantity"`
	Concept         string       `json:"concept,omitempty"`
	Illustration    string       `json:"illustration,omitempty"` // data URI preview, not yet uploaded
	IllustrationURL string       `json:"illustration_url,omitempty"`
	DiscountCode    string       `json:"discount_code,omitempty"`
	TotalPrice      int64        `json:"total_price"`
}

// NewBookingDraft returns the empty draft a wizard starts from.
func NewBookingDraft() BookingDraft {
	return BookingDraft{Quantity: DefaultQuantity}
}

// BookingPatch is a partial update of the user-editable draft fields.
// Nil fields are left untouched.
type BookingPatch struct {
	ShootingType   *ShootingType `json:"shooting_type,omitempty"`
	Province       *string       `json:"province,omitempty"`
	CustomLocation *string       `json:"custom_location,omitempty"`
	ServiceID      *string       `json:"service_id,omitempty"`
	Quantity       *int          `json:"quantity,omitempty" binding:"omitempty,min=0,max=100"`
	Concept        *string       `json:"concept,omitempty"`
	Illustration   *string       `json:"illustration,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p BookingPatch) Empty() bool {
	return p == BookingPatch{}
}

// Merge returns d with every non-nil field of p applied. A new illustration
// invalidates any previously uploaded URL.
func (d BookingDraft) Merge(p BookingPatch) BookingDraft {
	if p.ShootingType != nil {
		d.ShootingType = *p.ShootingType
	}
	if p.Province != nil {
		d.Province = *p.Province
	}
	if p.CustomLocation != nil {
		d.CustomLocation = *p.CustomLocation
	}
	if p.ServiceID != nil {
		d.ServiceID = *p.ServiceID
	}
	if p.Quantity != nil {
		d.Quantity = *p.Quantity
	}
	if p.Concept != nil {
		d.Concept = *p.Concept
	}
	if p.Illustration != nil {
		d.Illustration = *p.Illustration
		d.IllustrationURL = ""
	}
	return d
}
