package models

import "time"

// DiscountType distinguishes fixed-amount from percentage discounts.
type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

// Discount is a price reduction scoped to one photographer and one validity window.
// Value is a currency amount for fixed discounts and 0-100 for percent discounts.
// MaxUses of zero means unlimited.
type Discount struct {
	DiscountID     string       `json:"discount_id"`
	PhotographerID string       `json:"photographer_id"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discount_type"`
	Value          float64      `json:"value"`
	ValidFrom      time.Time    `json:"valid_from"`
	ValidTo        time.Time    `json:"valid_to"`
	MaxUses        int          `json:"max_uses"`
	CurrentUses    int          `json:"current_uses"`
}

// SavedDiscount is a discount the current user has saved to their account.
type SavedDiscount struct {
	SavedID  string    `json:"saved_id"`
	SavedAt  time.Time `json:"saved_at"`
	Discount Discount  `json:"discount"`
}

// DiscountValidation is the backend's verdict on a discount code for a service.
type DiscountValidation struct {
	Valid    bool     `json:"valid"`
	Message  string   `json:"message,omitempty"`
	Discount Discount `json:"discount"`
}
