package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

type tierPayload struct {
	Name   string `json:"name"`
	Visits int    `json:"visits"`
	Period string `json:"period"`
}

func newTierPayload(t models.IntegrityTier) tierPayload {
	return tierPayload{Name: t.Name, Visits: t.Visits, Period: t.Period}
}

// ListTiers returns every integrity tier.
func (c *Client) ListTiers(ctx context.Context, token string) ([]models.IntegrityTier, error) {
	var tiers []models.IntegrityTier
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/integrity-settings",
		path:   "/integrity-settings",
		token:  token,
		out:    &tiers,
	}); err != nil {
		return nil, err
	}
	return tiers, nil
}

// CreateTier adds a tier.
func (c *Client) CreateTier(ctx context.Context, token string, t models.IntegrityTier) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/integrity-settings",
		path:   "/integrity-settings",
		token:  token,
		body:   newTierPayload(t),
	})
}

// UpdateTier replaces the name, visits and period of tier t.ID.
func (c *Client) UpdateTier(ctx context.Context, token string, t models.IntegrityTier) error {
	return c.do(ctx, call{
		method: http.MethodPatch,
		route:  "/integrity-settings/:id",
		path:   "/integrity-settings/" + url.PathEscape(t.ID.String()),
		token:  token,
		body:   newTierPayload(t),
	})
}

// DeleteTier removes a tier.
func (c *Client) DeleteTier(ctx context.Context, token string, id models.ID) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/integrity-settings/:id",
		path:   "/integrity-settings/" + url.PathEscape(id.String()),
		token:  token,
	})
}
