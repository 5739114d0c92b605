// Package nav builds the permission-filtered navigation shown in the top bar.
package nav

import "github.com/Tsedenia-Nega/Appointment-management/internal/models"

// Entry is one navigation link gated by a single permission key.
type Entry struct {
	Label      string
	Path       string
	Permission models.Permission
	Group      string // tab group used by the layout ("Visitors", "Gate", "Admin")
}

// Entries is the static, ordered navigation.
// No permission implies another: check_in alone shows Check In but not Check Out.
var Entries = []Entry{
	{Label: "Dashboard", Path: "/dashboard", Permission: models.PermViewDashboard, Group: "Visitors"},
	{Label: "Requests", Path: "/pending", Permission: models.PermApproveRequest, Group: "Visitors"},
	{Label: "Check In", Path: "/checkin", Permission: models.PermCheckIn, Group: "Gate"},
	{Label: "Check Out", Path: "/security", Permission: models.PermCheckOut, Group: "Gate"},
	{Label: "Appointments", Path: "/view", Permission: models.PermViewAppointment, Group: "Visitors"},
	{Label: "Request Ledger", Path: "/appointment", Permission: models.PermApproveRequest, Group: "Visitors"},
	{Label: "Create Appointment", Path: "/create", Permission: models.PermCreateAppointment, Group: "Visitors"},
	{Label: "Integrity", Path: "/integrity", Permission: models.PermManageIntegrity, Group: "Admin"},
	{Label: "Create Account", Path: "/signup", Permission: models.PermManageRoles, Group: "Admin"},
	{Label: "Manage Roles", Path: "/roles", Permission: models.PermManageRoles, Group: "Admin"},
}

// Filter returns the entries whose permission is in set, preserving order.
func Filter(entries []Entry, set models.PermissionSet) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if set.Has(e.Permission) {
			out = append(out, e)
		}
	}
	return out
}

// ForIdentity filters Entries for the identity's role; nil yields nothing.
func ForIdentity(id *models.Identity) []Entry {
	if id == nil {
		return nil
	}
	return Filter(Entries, id.Role.Permissions)
}

// landing is the post-login redirect map, checked in order.
var landing = []struct {
	perm models.Permission
	path string
}{
	{models.PermViewDashboard, "/dashboard"},
	{models.PermApproveRequest, "/pending"},
	{models.PermCheckIn, "/checkin"},
	{models.PermCheckOut, "/security"},
	{models.PermViewAppointment, "/view"},
	{models.PermCreateAppointment, "/create"},
	{models.PermManageRoles, "/roles"},
	{models.PermManageIntegrity, "/integrity"},
}

// ProfilePath is where identities without any page permission land.
const ProfilePath = "/profile"

// LandingPath returns the first page the permission set unlocks.
func LandingPath(set models.PermissionSet) string {
	for _, l := range landing {
		if set.Has(l.perm) {
			return l.path
		}
	}
	return ProfilePath
}
