package backend

import (
	"context"
	"net/http"

	"snaplink/models"
)

// ListSavedDiscounts fetches the discounts the signed-in user has saved.
func (c *Client) ListSavedDiscounts(ctx context.Context) ([]models.SavedDiscount, error) {
	var saved []models.SavedDiscount
	if err := c.do(ctx, http.MethodGet, "/api/user/discounts", nil, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// ValidateDiscount asks the backend whether code applies to the service.
func (c *Client) ValidateDiscount(ctx context.Context, code, serviceID string) (*models.DiscountValidation, error) {
	in := struct {
		Code      string `json:"code"`
		ServiceID string `json:"service_id"`
	}{Code: code, ServiceID: serviceID}

	var out models.DiscountValidation
	if err := c.do(ctx, http.MethodPost, "/discounts/validate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
