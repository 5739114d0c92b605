package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
)

// fakeBackend implements every backend interface the services use. Calls
// are recorded by name in order.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	login    *models.LoginResponse
	loginErr error

	listings    map[backend.View][]models.Appointment
	listingErrs map[backend.View]error
	gate        map[models.ID]models.CheckInOutStatus
	gateErr     map[models.ID]error
	mutateErr   error

	roles    []models.Role
	grantErr error
	granted  [][]models.Permission
	revoked  [][]models.Permission

	tiers   []models.IntegrityTier
	saved   []models.IntegrityTier
	created *models.AppointmentPayload

	approval *models.ApprovalPayload
	reassign *models.ReassignPayload
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		listings:    map[backend.View][]models.Appointment{},
		listingErrs: map[backend.View]error{},
		gate:        map[models.ID]models.CheckInOutStatus{},
		gateErr:     map[models.ID]error{},
	}
}

// nestedListing is an approved listing in the shape the live API sends, with
// the visitor nested under "customer".
const nestedListing = `[
	{"id":21,"customer":{"firstName":"Abebe","lastName":"Kebede","email":"abebe@x.com"},
	 "appointmentDate":"2025-03-01","timeFrom":"09:00","timeTo":"10:00","status":"Approved"},
	{"id":22,"customer":{"firstName":"Sara","lastName":"Alemu","email":"sara@x.com"},
	 "appointmentDate":"2025-03-01","timeFrom":"11:00","timeTo":"12:00","status":"Approved"}
]`

// decodeListing parses body the way the API client does.
func decodeListing(t *testing.T, body string) []models.Appointment {
	t.Helper()
	var out []models.Appointment
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	return out
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (*models.LoginResponse, error) {
	f.record("Login")
	return f.login, f.loginErr
}

func (f *fakeBackend) ListAppointments(_ context.Context, _ string, view backend.View) ([]models.Appointment, error) {
	f.record("List:" + string(view))
	if err := f.listingErrs[view]; err != nil {
		return nil, err
	}
	return f.listings[view], nil
}

func (f *fakeBackend) GateStatus(_ context.Context, _ string, id models.ID) (models.CheckInOutStatus, error) {
	f.record("GateStatus:" + id.String())
	if err := f.gateErr[id]; err != nil {
		return models.CheckInOutStatus{}, err
	}
	return f.gate[id], nil
}

func (f *fakeBackend) CheckIn(_ context.Context, _ string, id models.ID) error {
	f.record("CheckIn:" + id.String())
	return f.mutateErr
}

func (f *fakeBackend) SecurityPass(_ context.Context, _ string, id models.ID) error {
	f.record("SecurityPass:" + id.String())
	return f.mutateErr
}

func (f *fakeBackend) CheckOut(_ context.Context, _ string, id models.ID) error {
	f.record("CheckOut:" + id.String())
	return f.mutateErr
}

func (f *fakeBackend) ListRoles(context.Context, string) ([]models.Role, error) {
	f.record("ListRoles")
	return f.roles, nil
}

func (f *fakeBackend) GrantPermissions(_ context.Context, _, role string, keys []models.Permission) error {
	f.record("Grant:" + role)
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, keys)
	return nil
}

func (f *fakeBackend) RevokePermissions(_ context.Context, _, role string, keys []models.Permission) error {
	f.record("Revoke:" + role)
	f.revoked = append(f.revoked, keys)
	return nil
}

func (f *fakeBackend) ListTiers(context.Context, string) ([]models.IntegrityTier, error) {
	f.record("ListTiers")
	return f.tiers, nil
}

func (f *fakeBackend) CreateTier(_ context.Context, _ string, t models.IntegrityTier) error {
	f.record("CreateTier")
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeBackend) UpdateTier(_ context.Context, _ string, t models.IntegrityTier) error {
	f.record("UpdateTier")
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeBackend) DeleteTier(context.Context, string, models.ID) error {
	f.record("DeleteTier")
	return nil
}

func (f *fakeBackend) CreateAppointment(_ context.Context, _ string, p models.AppointmentPayload) (*models.Appointment, error) {
	f.record("CreateAppointment")
	f.created = &p
	return &models.Appointment{ID: "1", Status: models.StatusPending}, nil
}

func (f *fakeBackend) UpdateAppointment(_ context.Context, _ string, _ models.ID, p models.AppointmentPayload) error {
	f.record("UpdateAppointment")
	f.created = &p
	return nil
}

func (f *fakeBackend) DeleteAppointment(context.Context, string, models.ID) error {
	f.record("DeleteAppointment")
	return nil
}

func (f *fakeBackend) GetAppointment(_ context.Context, _ string, id models.ID) (*models.Appointment, error) {
	f.record("GetAppointment")
	return &models.Appointment{ID: id}, nil
}

func (f *fakeBackend) Dashboard(context.Context, string) (*models.DashboardStats, error) {
	f.record("Dashboard")
	return &models.DashboardStats{}, nil
}

func (f *fakeBackend) Approve(_ context.Context, _ string, _ models.ID, p models.ApprovalPayload) error {
	f.record("Approve")
	f.approval = &p
	return nil
}

func (f *fakeBackend) Reject(context.Context, string, models.ID) error {
	f.record("Reject")
	return nil
}

func (f *fakeBackend) Reassign(_ context.Context, _ string, _ models.ID, p models.ReassignPayload) error {
	f.record("Reassign")
	f.reassign = &p
	return nil
}

var errBoom = errors.New("boom")
