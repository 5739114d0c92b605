package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

// View selects one of the filtered appointment listings.
type View string

// Listings served under /requests.
const (
	ViewPending    View = "pending"
	ViewApproved   View = "approved"
	ViewReassigned View = "reassigned"
	ViewAll        View = "all"
)

// CreateAppointment submits a new visitor request.
func (c *Client) CreateAppointment(ctx context.Context, token string, p models.AppointmentPayload) (*models.Appointment, error) {
	var appt models.Appointment
	if err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/requests",
		path:   "/requests",
		token:  token,
		body:   p,
		out:    &appt,
	}); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListAppointments returns one filtered listing.
func (c *Client) ListAppointments(ctx context.Context, token string, view View) ([]models.Appointment, error) {
	switch view {
	case ViewPending, ViewApproved, ViewReassigned, ViewAll:
	default:
		return nil, fmt.Errorf("backend: unknown listing %q", view)
	}

	var list []models.Appointment
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/requests/" + string(view),
		path:   "/requests/" + string(view),
		token:  token,
		out:    &list,
	}); err != nil {
		return nil, err
	}
	return list, nil
}

// Dashboard returns the summary counts.
func (c *Client) Dashboard(ctx context.Context, token string) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/requests/dashboard",
		path:   "/requests/dashboard",
		token:  token,
		out:    &stats,
	}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetAppointment fetches one request.
func (c *Client) GetAppointment(ctx context.Context, token string, id models.ID) (*models.Appointment, error) {
	var appt models.Appointment
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/requests/:id",
		path:   "/requests/" + url.PathEscape(id.String()),
		token:  token,
		out:    &appt,
	}); err != nil {
		return nil, err
	}
	return &appt, nil
}

// UpdateAppointment patches a request with the edited form.
func (c *Client) UpdateAppointment(ctx context.Context, token string, id models.ID, p models.AppointmentPayload) error {
	return c.do(ctx, call{
		method: http.MethodPatch,
		route:  "/requests/:id",
		path:   "/requests/" + url.PathEscape(id.String()),
		token:  token,
		body:   p,
	})
}

// DeleteAppointment removes a request.
func (c *Client) DeleteAppointment(ctx context.Context, token string, id models.ID) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/requests/:id",
		path:   "/requests/" + url.PathEscape(id.String()),
		token:  token,
	})
}
