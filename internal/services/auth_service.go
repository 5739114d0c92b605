// Package services provides the business logic layer between page handlers
// and the visitor API client. Services never cache backend data: every call
// reads fresh state, and every mutation returns only after the API confirmed it.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/nav"
)

// ErrMissingToken is returned when the login response carries no access token.
var ErrMissingToken = errors.New("Login failed: the server did not return an access token.")

// AuthBackend is the part of the API client used by AuthService.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
}

// AuthService handles credential exchange with the visitor API.
//
// Dependencies:
//   - AuthBackend: POST /auth/login
//
// Security Notes:
//   - Passwords are forwarded once and never logged or stored
//   - The access token is kept only in the server-side session
type AuthService struct {
	api AuthBackend
}

// NewAuthService creates and returns a new AuthService instance.
//
// Example:
//
//	authService := services.NewAuthService(client)
//	result, err := authService.Login(ctx, email, password)
func NewAuthService(api AuthBackend) *AuthService {
	return &AuthService{api: api}
}

// LoginResult is a successful login.
type LoginResult struct {
	Identity *models.Identity
	Landing  string // first page the identity's permissions unlock
}

// Login verifies credentials against the backend and builds the Identity the
// session will hold.
//
// Parameters:
//   - ctx: Context for cancellation
//   - email: User's email address, surrounding spaces are trimmed
//   - password: Plaintext password provided by the user
//
// Returns:
//   - *LoginResult: Identity with its access token and landing path
//   - error: *backend.APIError for rejected credentials, ErrMissingToken,
//     or a transport error
//
// Related:
//   - Login handler POST /login
//   - nav.LandingPath for the redirect target
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	resp, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrMissingToken
	}

	id := resp.User
	id.AccessToken = resp.AccessToken
	if id.Email == "" {
		id.Email = strings.TrimSpace(email)
	}

	return &LoginResult{
		Identity: &id,
		Landing:  nav.LandingPath(id.Role.Permissions),
	}, nil
}
