package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/cenkalti/backoff/v5"
)

// FallbackRoles is used for the account-creation dropdown when GET /auth/roles
// keeps failing.
var FallbackRoles = []string{"FRONT_DESK", "SECRETARY", "SECURITY"}

// Login exchanges credentials for an access token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/login",
		path:   "/auth/login",
		body:   models.LoginForm{Email: email, Password: password},
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup creates a staff account. Only role administrators may call it.
func (c *Client) Signup(ctx context.Context, token string, form models.SignupForm) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/signup",
		path:   "/auth/signup",
		token:  token,
		body:   form,
	})
}

// AssignableRoles lists the role names offered when creating an account.
//
// The endpoint is public and flaky during backend start-up, so it is tried
// up to the configured number of attempts with an exponential delay. When
// every attempt fails FallbackRoles is returned with usedFallback set and a
// nil error. The CEO role is never offered.
func (c *Client) AssignableRoles(ctx context.Context) (roles []string, usedFallback bool, err error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.roleWait
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempts := c.roleAttempts
	if attempts < 1 {
		attempts = 1
	}

	list, err := backoff.Retry(ctx, func() ([]models.Role, error) {
		var out []models.Role
		if err := c.do(ctx, call{
			method: http.MethodGet,
			route:  "/auth/roles",
			path:   "/auth/roles",
			out:    &out,
		}); err != nil {
			return nil, err
		}
		return out, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return append([]string(nil), FallbackRoles...), true, nil
	}

	for _, r := range list {
		if r.Name == "" || strings.EqualFold(r.Name, models.RoleCEO) {
			continue
		}
		roles = append(roles, r.Name)
	}
	return roles, false, nil
}

// ForgotPassword asks the backend to email a reset link and returns the
// confirmation text it answers with.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/forgot-password",
		path:   "/auth/forgot-password",
		body:   models.ForgotPasswordForm{Email: email},
		out:    &resp,
	}); err != nil {
		return "", err
	}
	if resp.Message == "" {
		resp.Message = "If an account exists for that email, a reset link has been sent."
	}
	return resp.Message, nil
}

// ResetPassword sets a new password using the emailed token.
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/reset-password/:token",
		path:   "/auth/reset-password/" + url.PathEscape(resetToken),
		body:   map[string]string{"password": password},
	})
}

// RegisterCEO creates the bootstrap administrator.
func (c *Client) RegisterCEO(ctx context.Context, form models.CEORegistrationForm) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/register-ceo",
		path:   "/auth/register-ceo",
		body:   form,
	})
}

// CEOExists reports whether the bootstrap administrator has been registered.
// The API answers with a bare boolean or with {"exists": bool}.
func (c *Client) CEOExists(ctx context.Context) (bool, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/ceo-exists",
		path:   "/ceo-exists",
		out:    &raw,
	}); err != nil {
		return false, err
	}

	var exists bool
	if json.Unmarshal(raw, &exists) == nil {
		return exists, nil
	}
	var envelope struct {
		Exists bool `json:"exists"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false, err
	}
	return envelope.Exists, nil
}
