package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

// ErrProfileNotFound is returned when GET /users has no record for the session's email.
var ErrProfileNotFound = errors.New("User not found.")

// ListUsers returns every user record visible to the caller.
func (c *Client) ListUsers(ctx context.Context, token string) ([]models.UserProfile, error) {
	var users []models.UserProfile
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/users",
		path:   "/users",
		token:  token,
		out:    &users,
	}); err != nil {
		return nil, err
	}
	return users, nil
}

// Profile finds the caller's own record in GET /users by email.
func (c *Client) Profile(ctx context.Context, token, email string) (*models.UserProfile, error) {
	users, err := c.ListUsers(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, ErrProfileNotFound
}

// UpdateProfile saves the caller's record and returns what the API stored.
// An empty response body yields p unchanged.
func (c *Client) UpdateProfile(ctx context.Context, token string, p models.UserProfile) (*models.UserProfile, error) {
	updated := p
	if err := c.do(ctx, call{
		method: http.MethodPut,
		route:  "/users/profile",
		path:   "/users/profile",
		token:  token,
		body:   p,
		out:    &updated,
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}
