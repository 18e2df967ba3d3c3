package backend

import (
	"context"
	"net/http"
	"net/url"

	"snaplink/models"
)

func photographerPath(slug string) string {
	return "/photographers/slug/" + url.PathEscape(slug)
}

// GetPhotographer fetches the public profile of a photographer.
func (c *Client) GetPhotographer(ctx context.Context, slug string) (*models.Photographer, error) {
	var p models.Photographer
	if err := c.do(ctx, http.MethodGet, photographerPath(slug), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAvailability fetches the photographer's day-by-day availability.
func (c *Client) ListAvailability(ctx context.Context, slug string) ([]models.AvailabilityEntry, error) {
	var entries []models.AvailabilityEntry
	if err := c.do(ctx, http.MethodGet, photographerPath(slug)+"/availability", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListServices fetches the services the photographer offers.
func (c *Client) ListServices(ctx context.Context, slug string) ([]models.Service, error) {
	var services []models.Service
	if err := c.do(ctx, http.MethodGet, photographerPath(slug)+"/services", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}
