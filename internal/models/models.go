// Package models defines the domain entities and form DTOs for the visitor portal.
// Entities mirror the JSON documents exchanged with the visitor API; form DTOs carry
// validate tags checked before any backend call is made.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================================
// Identifiers and status
// ============================================================================

// ID is a backend record identifier. The API is not consistent about sending
// ids as numbers or strings, so both decode into the same value.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as used in URL paths.
func (id ID) String() string { return string(id) }

// Status is the lifecycle state of an appointment request.
type Status string

// Appointment statuses.
const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusReassigned Status = "reassigned"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order, used for filter dropdowns.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusReassigned, StatusCompleted}

// ParseStatus normalizes a status string; the API sends both "Approved" and "APPROVED".
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

// UnmarshalJSON decodes a status case-insensitively.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	*s = ParseStatus(raw)
	return nil
}

// Label returns the status capitalized for display.
func (s Status) Label() string {
	return DisplayName(string(s))
}

// DisplayName turns backend keys such as "FRONT_DESK" or "check_in" into "Front Desk" / "Check In".
func DisplayName(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == ' ' || r == '-' })
	for i, w := range words {
		w = strings.ToLower(w)
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ============================================================================
// Identity and roles
// ============================================================================

// Role is a named bundle of permissions. The portal never edits its local
// copy; role administration mutates the backend and re-fetches.
type Role struct {
	ID          ID            `json:"id,omitempty"`
	Name        string        `json:"name"`
	Permissions PermissionSet `json:"permissions"`
}

// DisplayName returns the role name formatted for dropdowns and tables.
func (r Role) DisplayName() string {
	return DisplayName(r.Name)
}

// RoleCEO is the bootstrap administrator role. It is hidden from account
// creation and role administration.
const RoleCEO = "CEO"

// Identity is the authenticated user held in the session for its lifetime.
//
// Session Keys:
//   - token: AccessToken, stored separately so API calls read it directly
//   - user: the JSON encoding of this struct
type Identity struct {
	ID          ID     `json:"id,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        Role   `json:"role"`
	AccessToken string `json:"access_token,omitempty"`
}

// Has reports whether the identity's role grants p.
func (i *Identity) Has(p Permission) bool {
	if i == nil {
		return false
	}
	return i.Role.Permissions.Has(p)
}

// FullName returns "First Last", falling back to the email address.
func (i *Identity) FullName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	User        Identity `json:"user"`
}

// UserProfile is a user record as listed by GET /users.
type UserProfile struct {
	ID         ID              `json:"id,omitempty"`
	FirstName  string          `json:"firstName" form:"firstName" validate:"required,max=100"`
	MiddleName string          `json:"middleName,omitempty" form:"middleName" validate:"max=100"`
	LastName   string          `json:"lastName" form:"lastName" validate:"required,max=100"`
	Email      string          `json:"email" form:"email" validate:"required,email"`
	Phone      string          `json:"phone,omitempty" form:"phone" validate:"max=30"`
	Role       json.RawMessage `json:"role,omitempty" form:"-"`
}

// ============================================================================
// Appointments
// ============================================================================

// Customer holds the visitor's contact and organization details.
type Customer struct {
	FirstName    string `json:"firstName" form:"firstName" validate:"required,max=100"`
	MiddleName   string `json:"middleName,omitempty" form:"middleName" validate:"max=100"`
	LastName     string `json:"lastName" form:"lastName" validate:"required,max=100"`
	Email        string `json:"email" form:"email" validate:"required,email"`
	Phone        string `json:"phone" form:"phone" validate:"required,max=30"`
	Gender       string `json:"gender,omitempty" form:"gender" validate:"omitempty,oneof=Male Female"`
	PlateNum     string `json:"plateNum,omitempty" form:"plateNum" validate:"max=20"`
	Country      string `json:"country,omitempty" form:"country" validate:"max=100"`
	City         string `json:"city,omitempty" form:"city" validate:"max=100"`
	Organization string `json:"organization,omitempty" form:"organization" validate:"max=200"`
	Occupation   string `json:"occupation,omitempty" form:"occupation" validate:"max=100"`
}

// FullName returns the visitor's name with the middle name when present.
func (c Customer) FullName() string {
	parts := []string{c.FirstName}
	if c.MiddleName != "" {
		parts = append(parts, c.MiddleName)
	}
	parts = append(parts, c.LastName)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Approval records what an approver allowed when accepting a request.
type Approval struct {
	AllowedMaterials   []string `json:"allowedMaterials"`
	InspectionRequired bool     `json:"inspectionRequired"`
}

// Appointment is a visitor request as returned by the /requests endpoints.
//
// The API nests the visitor under "customer"; older documents carry the same
// fields at the top level. Both decode into the embedded Customer.
type Appointment struct {
	ID ID `json:"id"`
	Customer
	AppointmentDate    string    `json:"appointmentDate"`
	TimeFrom           string    `json:"timeFrom"`
	TimeTo             string    `json:"timeTo"`
	Purpose            string    `json:"purpose,omitempty"`
	Status             Status    `json:"status"`
	Approval           *Approval `json:"approval,omitempty"`
	ReassignedDate     string    `json:"reassignedDate,omitempty"`
	ReassignedTimeFrom string    `json:"reassignedTimeFrom,omitempty"`
	ReassignedTimeTo   string    `json:"reassignedTimeTo,omitempty"`
}

// UnmarshalJSON accepts the visitor either as a nested "customer" object or as
// top-level fields. A non-null nested object wins.
func (a *Appointment) UnmarshalJSON(data []byte) error {
	type plain Appointment
	var doc struct {
		plain
		Nested *Customer `json:"customer"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Nested != nil {
		doc.plain.Customer = *doc.Nested
	}
	*a = Appointment(doc.plain)
	return nil
}

// EffectiveDate returns the reassigned date when set, else the original one.
func (a Appointment) EffectiveDate() string {
	if a.ReassignedDate != "" {
		return a.ReassignedDate
	}
	return a.AppointmentDate
}

// EffectiveWindow returns the reassigned time window when set, else the original one.
func (a Appointment) EffectiveWindow() (from, to string) {
	if a.ReassignedTimeFrom != "" && a.ReassignedTimeTo != "" {
		return a.ReassignedTimeFrom, a.ReassignedTimeTo
	}
	return a.TimeFrom, a.TimeTo
}

// AppointmentPayload is the flat body sent by POST /requests and PATCH /requests/:id.
type AppointmentPayload struct {
	Customer
	AppointmentDate string `json:"appointmentDate"`
	TimeFrom        string `json:"timeFrom"`
	TimeTo          string `json:"timeTo"`
	Purpose         string `json:"purpose,omitempty"`
}

// MaterialOptions are the items an approver may allow a visitor to carry.
var MaterialOptions = []string{"All", "Computer", "PC", "Mobile", "Document", "USB Drive", "Camera"}

// ApprovalPayload is the body of POST /approvals/:id/approve.
type ApprovalPayload struct {
	AllowedMaterials   []string `json:"allowedMaterials"`
	InspectionRequired bool     `json:"inspectionRequired"`
}

// ReassignPayload is the body of POST /approvals/:id/reassign.
type ReassignPayload struct {
	ReassignedDate     string `json:"reassignedDate"`
	ReassignedTimeFrom string `json:"reassignedTimeFrom"`
	ReassignedTimeTo   string `json:"reassignedTimeTo"`
}

// DashboardStats is the summary returned by GET /requests/dashboard.
type DashboardStats struct {
	Total      int           `json:"total"`
	Pending    int           `json:"pending"`
	Approved   int           `json:"approved"`
	Rejected   int           `json:"rejected"`
	Reassigned int           `json:"reassigned"`
	Completed  int           `json:"completed"`
	Today      []Appointment `json:"today,omitempty"`
}

// ============================================================================
// Visits
// ============================================================================

// CheckInOutStatus tracks the gate events of one appointment.
type CheckInOutStatus struct {
	SecurityPassed bool `json:"securityPassed"`
	CheckedIn      bool `json:"checkedIn"`
	CheckedOut     bool `json:"checkedOut"`
}

// CanCheckIn reports whether the check-in control is enabled.
func (s CheckInOutStatus) CanCheckIn() bool {
	return !s.CheckedIn
}

// CanSecurityPass reports whether the security-pass control is enabled.
func (s CheckInOutStatus) CanSecurityPass() bool {
	return !s.SecurityPassed
}

// CanCheckOut reports whether the checkout control is enabled.
// Checkout is disabled until security has passed.
func (s CheckInOutStatus) CanCheckOut() bool {
	return s.SecurityPassed && !s.CheckedOut
}

// Visit pairs an approved or reassigned appointment with its gate status.
type Visit struct {
	Appointment
	Gate CheckInOutStatus
}

// ============================================================================
// Integrity tiers
// ============================================================================

// Tier names and periods accepted by /integrity-settings.
const (
	TierGold     = "Gold"
	TierSilver   = "Silver"
	TierPlatinum = "Platinum"

	PeriodMonth = "month"
	PeriodYear  = "year"
)

// TierNames lists the tier names in display order.
var TierNames = []string{TierGold, TierSilver, TierPlatinum}

// ErrDuplicateTier is returned when a tier name is already used by another tier.
var ErrDuplicateTier = errors.New("duplicate integrity tier")

// IntegrityTier is a visit-frequency category.
type IntegrityTier struct {
	ID     ID     `json:"id,omitempty"`
	Name   string `json:"name" form:"name" validate:"required,oneof=Gold Silver Platinum"`
	Visits int    `json:"visits" form:"visits" validate:"gte=0"`
	Period string `json:"period" form:"period" validate:"required,oneof=month year"`
}

// PeriodLabel returns "Per Month" or "Per Year".
func (t IntegrityTier) PeriodLabel() string {
	if t.Period == PeriodMonth {
		return "Per Month"
	}
	return "Per Year"
}

// DuplicateTierError names the tier that already exists.
type DuplicateTierError struct {
	Name string
}

func (e *DuplicateTierError) Error() string {
	return fmt.Sprintf("A category with the range type %q already exists.", e.Name)
}

// Is makes errors.Is(err, ErrDuplicateTier) hold.
func (e *DuplicateTierError) Is(target error) bool {
	return target == ErrDuplicateTier
}

// CheckTierUnique rejects candidate when another tier (different id) already
// uses the same name. Names compare case-insensitively.
func CheckTierUnique(existing []IntegrityTier, candidate IntegrityTier) error {
	for _, t := range existing {
		if strings.EqualFold(t.Name, candidate.Name) && t.ID != candidate.ID {
			return &DuplicateTierError{Name: candidate.Name}
		}
	}
	return nil
}

// ParseVisits converts the form value to a non-negative visit count.
func ParseVisits(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New("Visits must be a whole number.")
	}
	if n < 0 {
		return 0, errors.New("Visits cannot be negative.")
	}
	return n, nil
}

// ============================================================================
// Form DTOs
// ============================================================================

// LoginForm is the body of POST /login.
type LoginForm struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// SignupForm creates a staff account via POST /auth/signup.
type SignupForm struct {
	FirstName  string `json:"firstName" form:"firstName" validate:"required,max=100"`
	MiddleName string `json:"middleName,omitempty" form:"middleName" validate:"max=100"`
	LastName   string `json:"lastName" form:"lastName" validate:"required,max=100"`
	Email      string `json:"email" form:"email" validate:"required,email"`
	Password   string `json:"password" form:"password" validate:"required,min=8"`
	Role       string `json:"role" form:"role" validate:"required"`
}

// CEORegistrationForm is the one-time bootstrap account.
type CEORegistrationForm struct {
	FirstName       string `json:"firstName" form:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" form:"lastName" validate:"required,max=100"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"required,eqfield=Password"`
}

// ForgotPasswordForm requests a reset link.
type ForgotPasswordForm struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// ResetPasswordForm sets a new password with a reset token.
type ResetPasswordForm struct {
	Password        string `json:"password" form:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"required,eqfield=Password"`
}

// AppointmentForm is the create/edit appointment form. Times are picked on a
// 12-hour clock and converted before they are sent.
type AppointmentForm struct {
	Customer
	AppointmentDate string `form:"appointmentDate" validate:"required,isodate"`
	FromHour        string `form:"fromHour" validate:"required"`
	FromMinute      string `form:"fromMinute" validate:"required"`
	FromPeriod      string `form:"fromPeriod" validate:"required,oneof=AM PM"`
	ToHour          string `form:"toHour" validate:"required"`
	ToMinute        string `form:"toMinute" validate:"required"`
	ToPeriod        string `form:"toPeriod" validate:"required,oneof=AM PM"`
	Purpose         string `form:"purpose" validate:"max=500"`
}

// ReassignForm moves a request to another date and window.
type ReassignForm struct {
	Date       string `form:"reassignedDate" validate:"required,isodate"`
	FromHour   string `form:"fromHour" validate:"required"`
	FromMinute string `form:"fromMinute" validate:"required"`
	FromPeriod string `form:"fromPeriod" validate:"required,oneof=AM PM"`
	ToHour     string `form:"toHour" validate:"required"`
	ToMinute   string `form:"toMinute" validate:"required"`
	ToPeriod   string `form:"toPeriod" validate:"required,oneof=AM PM"`
}

// ApprovalForm is the approve dialog of a pending request.
type ApprovalForm struct {
	AllowedMaterials   []string `form:"allowedMaterials"`
	InspectionRequired bool     `form:"inspectionRequired"`
}
