package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Permission is a capability key granted to a role by the backend.
// Route guards and navigation compare keys by exact string match.
type Permission string

// Permission keys understood by the portal. Keys outside this list are kept
// in a PermissionSet but never unlock a page.
const (
	PermViewDashboard     Permission = "view_dashboard"
	PermApproveRequest    Permission = "approve_request"
	PermCheckIn           Permission = "check_in"
	PermCheckOut          Permission = "check_out"
	PermManageRoles       Permission = "manage_roles"
	PermCreateAppointment Permission = "create_appointment"
	PermViewAppointment   Permission = "view_appointment"
	PermManageIntegrity   Permission = "manage_integrity"
)

// AllPermissions lists every known permission in the order the role
// administration page presents them.
var AllPermissions = []Permission{
	PermViewDashboard,
	PermApproveRequest,
	PermCheckIn,
	PermCheckOut,
	PermManageRoles,
	PermCreateAppointment,
	PermViewAppointment,
	PermManageIntegrity,
}

// Label returns a human readable name for the permission ("check_in" -> "Check In").
func (p Permission) Label() string {
	return DisplayName(string(p))
}

// PermissionSet is an unordered, duplicate-free set of permission keys.
//
// The backend sends permissions as a list of objects ({"key": "..."}); a plain
// list of strings is accepted too so sessions written by older builds still load.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given keys.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set. A nil set holds nothing.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts p into the set.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Keys returns the members sorted lexically.
func (s PermissionSet) Keys() []Permission {
	keys := make([]Permission, 0, len(s))
	for p := range s {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Diff compares a target set against s and returns what must be granted
// (in target, not in s) and revoked (in s, not in target). Both results are sorted.
func (s PermissionSet) Diff(target PermissionSet) (grant, revoke []Permission) {
	for _, p := range target.Keys() {
		if !s.Has(p) {
			grant = append(grant, p)
		}
	}
	for _, p := range s.Keys() {
		if !target.Has(p) {
			revoke = append(revoke, p)
		}
	}
	return grant, revoke
}

type permissionKey struct {
	Key Permission `json:"key"`
}

// MarshalJSON encodes the set in the backend wire form, sorted by key.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	keys := s.Keys()
	out := make([]permissionKey, len(keys))
	for i, k := range keys {
		out[i] = permissionKey{Key: k}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either [{"key": "..."}] or ["..."].
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = PermissionSet{}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("permissions: %w", err)
	}

	set := make(PermissionSet, len(raw))
	for _, item := range raw {
		var key string
		if err := json.Unmarshal(item, &key); err == nil {
			set.Add(Permission(key))
			continue
		}
		var obj permissionKey
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("permissions: unsupported entry %s", item)
		}
		set.Add(obj.Key)
	}
	*s = set
	return nil
}
