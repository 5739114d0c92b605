package services

import (
	"context"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/Tsedenia-Nega/Appointment-management/internal/timeutil"
)

// AppointmentBackend is the part of the API client used by AppointmentService.
type AppointmentBackend interface {
	CreateAppointment(ctx context.Context, token string, p models.AppointmentPayload) (*models.Appointment, error)
	UpdateAppointment(ctx context.Context, token string, id models.ID, p models.AppointmentPayload) error
	DeleteAppointment(ctx context.Context, token string, id models.ID) error
	GetAppointment(ctx context.Context, token string, id models.ID) (*models.Appointment, error)
	ListAppointments(ctx context.Context, token string, view backend.View) ([]models.Appointment, error)
	Dashboard(ctx context.Context, token string) (*models.DashboardStats, error)
	Approve(ctx context.Context, token string, id models.ID, p models.ApprovalPayload) error
	Reject(ctx context.Context, token string, id models.ID) error
	Reassign(ctx context.Context, token string, id models.ID, p models.ReassignPayload) error
}

// AppointmentService validates appointment forms and drives the approval workflow.
type AppointmentService struct {
	api      AppointmentBackend
	validate *security.ValidationService
}

// NewAppointmentService creates an AppointmentService.
func NewAppointmentService(api AppointmentBackend, validate *security.ValidationService) *AppointmentService {
	return &AppointmentService{api: api, validate: validate}
}

// Payload validates form and converts it to the API body. No request is
// made; a form that fails here must never reach the backend.
func (s *AppointmentService) Payload(form models.AppointmentForm) (models.AppointmentPayload, error) {
	if err := s.validate.Struct(form); err != nil {
		return models.AppointmentPayload{}, err
	}

	from, to, err := window(form.FromHour, form.FromMinute, form.FromPeriod, form.ToHour, form.ToMinute, form.ToPeriod)
	if err != nil {
		return models.AppointmentPayload{}, err
	}

	customer := form.Customer
	customer.FirstName = s.validate.SanitizeString(customer.FirstName)
	customer.MiddleName = s.validate.SanitizeString(customer.MiddleName)
	customer.LastName = s.validate.SanitizeString(customer.LastName)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.PlateNum = strings.ToUpper(strings.TrimSpace(customer.PlateNum))

	return models.AppointmentPayload{
		Customer:        customer,
		AppointmentDate: form.AppointmentDate,
		TimeFrom:        from,
		TimeTo:          to,
		Purpose:         s.validate.SanitizeString(form.Purpose),
	}, nil
}

func window(fh, fm, fp, th, tm, tp string) (from, to string, err error) {
	if from, err = timeutil.ParseClock12(fh, fm, fp); err != nil {
		return "", "", err
	}
	if to, err = timeutil.ParseClock12(th, tm, tp); err != nil {
		return "", "", err
	}
	if err = timeutil.ValidateWindow(from, to); err != nil {
		return "", "", err
	}
	return from, to, nil
}

// Create validates form and submits it.
func (s *AppointmentService) Create(ctx context.Context, token string, form models.AppointmentForm) (*models.Appointment, error) {
	p, err := s.Payload(form)
	if err != nil {
		return nil, err
	}
	return s.api.CreateAppointment(ctx, token, p)
}

// Update validates form and patches appointment id.
func (s *AppointmentService) Update(ctx context.Context, token string, id models.ID, form models.AppointmentForm) error {
	p, err := s.Payload(form)
	if err != nil {
		return err
	}
	return s.api.UpdateAppointment(ctx, token, id, p)
}

// Delete removes appointment id.
func (s *AppointmentService) Delete(ctx context.Context, token string, id models.ID) error {
	return s.api.DeleteAppointment(ctx, token, id)
}

// Get fetches one appointment.
func (s *AppointmentService) Get(ctx context.Context, token string, id models.ID) (*models.Appointment, error) {
	return s.api.GetAppointment(ctx, token, id)
}

// List fetches one listing.
func (s *AppointmentService) List(ctx context.Context, token string, view backend.View) ([]models.Appointment, error) {
	return s.api.ListAppointments(ctx, token, view)
}

// Dashboard fetches the summary counts.
func (s *AppointmentService) Dashboard(ctx context.Context, token string) (*models.DashboardStats, error) {
	return s.api.Dashboard(ctx, token)
}

// Approve accepts request id. Selecting "All" allows every material.
func (s *AppointmentService) Approve(ctx context.Context, token string, id models.ID, form models.ApprovalForm) error {
	materials := make([]string, 0, len(form.AllowedMaterials))
	allowed := make(map[string]bool, len(models.MaterialOptions))
	for _, m := range models.MaterialOptions {
		allowed[m] = true
	}
	for _, m := range form.AllowedMaterials {
		if m == "All" {
			materials = []string{"All"}
			break
		}
		if allowed[m] {
			materials = append(materials, m)
		}
	}

	return s.api.Approve(ctx, token, id, models.ApprovalPayload{
		AllowedMaterials:   materials,
		InspectionRequired: form.InspectionRequired,
	})
}

// Reject declines request id.
func (s *AppointmentService) Reject(ctx context.Context, token string, id models.ID) error {
	return s.api.Reject(ctx, token, id)
}

// Reassign validates the new window and moves request id to it.
func (s *AppointmentService) Reassign(ctx context.Context, token string, id models.ID, form models.ReassignForm) error {
	if err := s.validate.Struct(form); err != nil {
		return err
	}
	from, to, err := window(form.FromHour, form.FromMinute, form.FromPeriod, form.ToHour, form.ToMinute, form.ToPeriod)
	if err != nil {
		return err
	}
	return s.api.Reassign(ctx, token, id, models.ReassignPayload{
		ReassignedDate:     form.Date,
		ReassignedTimeFrom: from,
		ReassignedTimeTo:   to,
	})
}

// AppointmentFilter narrows the appointment table.
type AppointmentFilter struct {
	Search string        // matched against visitor name and email
	Status models.Status // empty matches every status
	Date   string        // YYYY-MM-DD, empty matches every date
}

// FilterAppointments applies f, keeping order.
func FilterAppointments(list []models.Appointment, f AppointmentFilter) []models.Appointment {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Appointment, 0, len(list))
	for _, a := range list {
		if term != "" &&
			!strings.Contains(strings.ToLower(a.FullName()), term) &&
			!strings.Contains(strings.ToLower(a.Email), term) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != "" && a.EffectiveDate() != f.Date {
			continue
		}
		out = append(out, a)
	}
	return out
}
