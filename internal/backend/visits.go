package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

// GateStatus returns the check-in/out record of an appointment.
func (c *Client) GateStatus(ctx context.Context, token string, id models.ID) (models.CheckInOutStatus, error) {
	var st models.CheckInOutStatus
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/checkinout/:id",
		path:   "/checkinout/" + url.PathEscape(id.String()),
		token:  token,
		out:    &st,
	})
	return st, err
}

func (c *Client) gate(ctx context.Context, token string, id models.ID, action string, body interface{}) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/checkinout/:id/" + action,
		path:   "/checkinout/" + url.PathEscape(id.String()) + "/" + action,
		token:  token,
		body:   body,
	})
}

// CheckIn records the visitor's arrival.
func (c *Client) CheckIn(ctx context.Context, token string, id models.ID) error {
	return c.gate(ctx, token, id, "checkin", map[string]bool{"checkedIn": true})
}

// SecurityPass records a passed security inspection.
func (c *Client) SecurityPass(ctx context.Context, token string, id models.ID) error {
	return c.gate(ctx, token, id, "security-pass", map[string]bool{"securityPassed": true})
}

// CheckOut records the visitor's departure. Callers gate it on SecurityPassed.
func (c *Client) CheckOut(ctx context.Context, token string, id models.ID) error {
	return c.gate(ctx, token, id, "checkout", map[string]bool{"checkedOut": true})
}
