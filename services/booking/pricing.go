package booking

import (
	"errors"
	"math"
	"strings"
	"time"

	"snaplink/models"
)

// Quote is the derived price of a draft.
type Quote struct {
	UnitPrice      int64  `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
	BasePrice      int64  `json:"basePrice"`
	DiscountCode   string `json:"discountCode,omitempty"`
	DiscountAmount int64  `json:"discountAmount"`
	TotalPrice     int64  `json:"totalPrice"`
	// Capped is set when the discount exceeded the base price and was cut down
	// so the total stays at zero instead of going negative.
	Capped bool `json:"capped,omitempty"`
}

// ErrPriceOverflow is returned when a price does not fit the amount type.
var ErrPriceOverflow = errors.New("price is out of range")

// CalculateQuote prices quantity units of service with an optional discount.
// Amounts are rounded to the currency's minor unit. A quantity below one is
// priced as one.
func CalculateQuote(service models.Service, quantity int, discount *models.Discount) (Quote, error) {
	if quantity < 1 {
		quantity = models.DefaultQuantity
	}
	if service.Price < 0 || (service.Price > 0 && int64(quantity) > math.MaxInt64/service.Price) {
		return Quote{}, ErrPriceOverflow
	}
	q := Quote{
		UnitPrice: service.Price,
		Quantity:  quantity,
		BasePrice: service.Price * int64(quantity),
	}

	if discount != nil && discount.Value > 0 {
		q.DiscountCode = discount.Code
		var amount float64
		switch discount.DiscountType {
		case models.DiscountFixed:
			amount = math.Round(discount.Value)
		case models.DiscountPercent:
			amount = math.Round(float64(q.BasePrice) * discount.Value / 100)
		}
		// Compared as floats: an amount past the int64 range must not be converted.
		if amount >= float64(q.BasePrice) {
			q.DiscountAmount = q.BasePrice
			q.Capped = amount > float64(q.BasePrice)
		} else {
			q.DiscountAmount = int64(amount)
		}
	} else if discount != nil {
		q.DiscountCode = discount.Code
	}

	q.TotalPrice = q.BasePrice - q.DiscountAmount
	return q, nil
}

// CheckDiscount reports why discount cannot be applied to service at now, or nil.
func CheckDiscount(discount models.Discount, service models.Service, now time.Time) error {
	switch discount.DiscountType {
	case models.DiscountFixed:
		if !(discount.Value >= 0) || math.IsInf(discount.Value, 0) {
			return ErrDiscountRejected
		}
	case models.DiscountPercent:
		if !(discount.Value >= 0 && discount.Value <= 100) {
			return ErrDiscountRejected
		}
	default:
		return ErrDiscountRejected
	}
	if discount.PhotographerID != service.PhotographerID {
		return ErrDiscountPhotographerMismatch
	}
	if !discount.ValidFrom.IsZero() && now.Before(discount.ValidFrom) {
		return ErrDiscountExpired
	}
	if !discount.ValidTo.IsZero() && now.After(discount.ValidTo) {
		return ErrDiscountExpired
	}
	if discount.MaxUses > 0 && discount.CurrentUses >= discount.MaxUses {
		return ErrDiscountExhausted
	}
	return nil
}

// LookupDiscount finds a free-text code among the user's saved discounts.
func LookupDiscount(saved []models.SavedDiscount, code string) (models.Discount, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Discount{}, false
	}
	for _, s := range saved {
		if strings.EqualFold(s.Discount.Code, code) {
			return s.Discount, true
		}
	}
	return models.Discount{}, false
}
