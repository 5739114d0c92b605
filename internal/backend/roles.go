package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

type permissionKeys struct {
	PermissionKeys []models.Permission `json:"permissionKeys"`
}

// ListRoles returns every role with its permissions, CEO excluded.
func (c *Client) ListRoles(ctx context.Context, token string) ([]models.Role, error) {
	var all []models.Role
	if err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/roles",
		path:   "/roles",
		token:  token,
		out:    &all,
	}); err != nil {
		return nil, err
	}

	roles := all[:0]
	for _, r := range all {
		if !strings.EqualFold(r.Name, models.RoleCEO) {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// GrantPermissions adds keys to the named role.
func (c *Client) GrantPermissions(ctx context.Context, token, role string, keys []models.Permission) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/roles/grant-multiple/:role",
		path:   "/auth/roles/grant-multiple/" + url.PathEscape(role),
		token:  token,
		body:   permissionKeys{PermissionKeys: keys},
	})
}

// RevokePermissions removes keys from the named role.
func (c *Client) RevokePermissions(ctx context.Context, token, role string, keys []models.Permission) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/auth/roles/revoke-multiple/:role",
		path:   "/auth/roles/revoke-multiple/" + url.PathEscape(role),
		token:  token,
		body:   permissionKeys{PermissionKeys: keys},
	})
}
