package handlers

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/pager"
	"github.com/Tsedenia-Nega/Appointment-management/internal/services"
	"github.com/Tsedenia-Nega/Appointment-management/internal/timeutil"
	"github.com/gofiber/fiber/v2"
)

// Messages shown after appointment mutations.
const (
	msgCreated      = "Appointment created successfully!"
	msgCreateFailed = "Failed to create appointment. Please try again."
	msgUpdated      = "Appointment updated successfully!"
	msgDeleted      = "Appointment deleted."
)

// ShowCreateAppointment renders an empty appointment form.
func (h *Handler) ShowCreateAppointment(c *fiber.Ctx) error {
	return h.render(c, "appointments/form", createFormData(newAppointmentForm()))
}

func createFormData(form models.AppointmentForm) fiber.Map {
	return fiber.Map{
		"Title":   "Create Appointment",
		"Heading": "Create Appointment",
		"Action":  "/create",
		"Submit":  "Create",
		"Form":    form,
	}
}

func newAppointmentForm() models.AppointmentForm {
	return models.AppointmentForm{FromPeriod: timeutil.AM, ToPeriod: timeutil.AM}
}

// CreateAppointment validates and submits a new appointment.
//
// Validation failures, including a window whose end is not after its start,
// re-render the form with the message and send nothing to the API.
//
// Form Data:
//   - visitor fields (firstName, lastName, email, phone, ...)
//   - appointmentDate: YYYY-MM-DD
//   - fromHour/fromMinute/fromPeriod, toHour/toMinute/toPeriod: 12-hour clock
//   - purpose: free text
func (h *Handler) CreateAppointment(c *fiber.Ctx) error {
	var form models.AppointmentForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	data := createFormData(form)
	if _, err := h.appts.Create(c.UserContext(), token(c), form); err != nil {
		return h.fail(c, err, "appointments/form", data, msgCreateFailed)
	}

	h.flash(c, identity.FlashSuccess, msgCreated)
	return c.Redirect("/view")
}

// listQuery is the parsed filter of a listing page.
type listQuery struct {
	Filter services.AppointmentFilter
	Page   int
}

func parseListQuery(c *fiber.Ctx) listQuery {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil {
		page = 1
	}
	return listQuery{
		Filter: services.AppointmentFilter{
			Search: c.Query("q"),
			Status: models.ParseStatus(c.Query("status")),
			Date:   c.Query("date"),
		},
		Page: page,
	}
}

// pageURL returns path with the filter applied, ending in "page=" so the
// pager can append a number.
func (q listQuery) pageURL(path string) string {
	v := url.Values{}
	if q.Filter.Search != "" {
		v.Set("q", q.Filter.Search)
	}
	if q.Filter.Status != "" {
		v.Set("status", string(q.Filter.Status))
	}
	if q.Filter.Date != "" {
		v.Set("date", q.Filter.Date)
	}
	if enc := v.Encode(); enc != "" {
		return path + "?" + enc + "&page="
	}
	return path + "?page="
}

// paged filters list and fills the table keys of data.
func paged(data fiber.Map, list []models.Appointment, q listQuery, path string) {
	list = services.FilterAppointments(list, q.Filter)
	p := pager.Paginate(len(list), q.Page, pager.PerPage)
	data["Items"] = pager.Slice(list, p)
	data["Page"] = p
	data["Numbers"] = pager.Numbers(p.Number, p.Pages)
	data["PageURL"] = q.pageURL(path)
}

// Appointments lists every appointment with search, status and date filters,
// eight per page.
//
// Query Parameters:
//   - q: matched against visitor name and email
//   - status: one of the request statuses
//   - date: YYYY-MM-DD
//   - page: 1-based page, clamped to the available pages
func (h *Handler) Appointments(c *fiber.Ctx) error {
	q := parseListQuery(c)
	data := fiber.Map{
		"Title":    "Appointments",
		"Filter":   q.Filter,
		"Statuses": models.Statuses,
	}

	list, err := h.appts.List(c.UserContext(), token(c), backend.ViewAll)
	if err != nil {
		paged(data, nil, q, "/view")
		return h.fail(c, err, "appointments/list", data, "Failed to load appointments.")
	}
	paged(data, list, q, "/view")
	return h.render(c, "appointments/list", data)
}

// ShowAppointment renders one appointment.
func (h *Handler) ShowAppointment(c *fiber.Ctx) error {
	appt, err := h.appts.Get(c.UserContext(), token(c), models.ID(c.Params("id")))
	if err != nil {
		return h.flashBack(c, err, "/view", "", "Appointment not found.")
	}
	return h.render(c, "appointments/detail", fiber.Map{
		"Title": appt.FullName(),
		"Appt":  appt,
	})
}

// ShowEditAppointment renders the form prefilled from the stored appointment.
func (h *Handler) ShowEditAppointment(c *fiber.Ctx) error {
	id := models.ID(c.Params("id"))
	appt, err := h.appts.Get(c.UserContext(), token(c), id)
	if err != nil {
		return h.flashBack(c, err, "/view", "", "Appointment not found.")
	}
	return h.render(c, "appointments/form", editFormData(id, formFromAppointment(*appt)))
}

func editFormData(id models.ID, form models.AppointmentForm) fiber.Map {
	return fiber.Map{
		"Title":   "Edit Appointment",
		"Heading": "Edit Appointment",
		"Action":  fmt.Sprintf("/edit/%s", url.PathEscape(id.String())),
		"Submit":  "Save",
		"Form":    form,
	}
}

// formFromAppointment converts the stored 24-hour window back to the pickers.
func formFromAppointment(a models.Appointment) models.AppointmentForm {
	form := models.AppointmentForm{
		Customer:        a.Customer,
		AppointmentDate: a.AppointmentDate,
		Purpose:         a.Purpose,
		FromPeriod:      timeutil.AM,
		ToPeriod:        timeutil.AM,
	}
	if from, err := timeutil.From24Hour(a.TimeFrom); err == nil {
		form.FromHour, form.FromMinute, form.FromPeriod = clockFields(from)
	}
	if to, err := timeutil.From24Hour(a.TimeTo); err == nil {
		form.ToHour, form.ToMinute, form.ToPeriod = clockFields(to)
	}
	return form
}

func clockFields(c timeutil.Clock12) (hour, minute, period string) {
	return fmt.Sprintf("%02d", c.Hour), fmt.Sprintf("%02d", c.Minute), c.Period
}

// UpdateAppointment validates the edit form and patches the appointment.
func (h *Handler) UpdateAppointment(c *fiber.Ctx) error {
	id := models.ID(c.Params("id"))
	var form models.AppointmentForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	if err := h.appts.Update(c.UserContext(), token(c), id, form); err != nil {
		return h.fail(c, err, "appointments/form", editFormData(id, form), "Failed to update appointment.")
	}

	h.flash(c, identity.FlashSuccess, msgUpdated)
	return c.Redirect("/view/" + url.PathEscape(id.String()))
}

// DeleteAppointment removes an appointment and returns to the list.
func (h *Handler) DeleteAppointment(c *fiber.Ctx) error {
	id := models.ID(c.Params("id"))
	err := h.appts.Delete(c.UserContext(), token(c), id)
	if err == nil {
		h.logger.Info(fmt.Sprintf("appointment %s deleted by %s", id, middleware.CurrentIdentity(c).Email))
	}
	return h.flashBack(c, err, "/view", msgDeleted, "Failed to delete appointment.")
}

// Ledger lists every request with its status for approvers.
func (h *Handler) Ledger(c *fiber.Ctx) error {
	q := parseListQuery(c)
	data := fiber.Map{
		"Title":    "Request Ledger",
		"Filter":   q.Filter,
		"Statuses": models.Statuses,
	}

	list, err := h.appts.List(c.UserContext(), token(c), backend.ViewAll)
	if err != nil {
		paged(data, nil, q, "/appointment")
		return h.fail(c, err, "ledger", data, "Failed to load requests.")
	}
	paged(data, list, q, "/appointment")
	return h.render(c, "ledger", data)
}
