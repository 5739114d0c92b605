package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

// ErrRoleNotFound is returned for a role name the API does not list.
var ErrRoleNotFound = errors.New("Role not found.")

// RoleBackend is the part of the API client used by RoleService.
type RoleBackend interface {
	ListRoles(ctx context.Context, token string) ([]models.Role, error)
	GrantPermissions(ctx context.Context, token, role string, keys []models.Permission) error
	RevokePermissions(ctx context.Context, token, role string, keys []models.Permission) error
}

// RoleService administers role permissions.
type RoleService struct {
	api RoleBackend
}

// NewRoleService creates a RoleService.
func NewRoleService(api RoleBackend) *RoleService {
	return &RoleService{api: api}
}

// List returns every administrable role.
func (s *RoleService) List(ctx context.Context, token string) ([]models.Role, error) {
	return s.api.ListRoles(ctx, token)
}

// Find returns the named role as currently stored.
func (s *RoleService) Find(ctx context.Context, token, name string) (*models.Role, error) {
	roles, err := s.api.ListRoles(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if strings.EqualFold(roles[i].Name, name) {
			return &roles[i], nil
		}
	}
	return nil, ErrRoleNotFound
}

// SaveResult lists what a save changed.
type SaveResult struct {
	Granted []models.Permission
	Revoked []models.Permission
}

// Changed reports whether anything was sent.
func (r SaveResult) Changed() bool {
	return len(r.Granted) > 0 || len(r.Revoked) > 0
}

// Save moves role from initial to selected. Grants are sent before revokes,
// and an empty side sends nothing. If the grant call fails nothing is revoked.
func (s *RoleService) Save(ctx context.Context, token, role string, initial, selected models.PermissionSet) (SaveResult, error) {
	grant, revoke := initial.Diff(selected)
	var res SaveResult

	if len(grant) > 0 {
		if err := s.api.GrantPermissions(ctx, token, role, grant); err != nil {
			return res, fmt.Errorf("grant permissions: %w", err)
		}
		res.Granted = grant
	}
	if len(revoke) > 0 {
		if err := s.api.RevokePermissions(ctx, token, role, revoke); err != nil {
			return res, fmt.Errorf("revoke permissions: %w", err)
		}
		res.Revoked = revoke
	}
	return res, nil
}
