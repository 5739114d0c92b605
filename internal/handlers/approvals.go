package handlers

import (
	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/timeutil"
	"github.com/gofiber/fiber/v2"
)

// Pending lists the requests waiting for a decision.
func (h *Handler) Pending(c *fiber.Ctx) error {
	data := fiber.Map{
		"Title":     "Pending Requests",
		"Materials": models.MaterialOptions,
		"Items":     []models.Appointment{},
	}

	list, err := h.appts.List(c.UserContext(), token(c), backend.ViewPending)
	if err != nil {
		return h.fail(c, err, "pending", data, "Failed to load pending requests.")
	}
	data["Items"] = list
	return h.render(c, "pending", data)
}

// Approve accepts a pending request with the allowed materials and the
// inspection flag.
//
// Form Data:
//   - allowedMaterials: repeated, any of models.MaterialOptions
//   - inspectionRequired: "true" when checked
func (h *Handler) Approve(c *fiber.Ctx) error {
	var form models.ApprovalForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	err := h.appts.Approve(c.UserContext(), token(c), models.ID(c.Params("id")), form)
	return h.flashBack(c, err, "/pending", "Request approved.", "Failed to approve request.")
}

// Reject declines a pending request.
func (h *Handler) Reject(c *fiber.Ctx) error {
	err := h.appts.Reject(c.UserContext(), token(c), models.ID(c.Params("id")))
	return h.flashBack(c, err, "/pending", "Request rejected.", "Failed to reject request.")
}

// ShowReassign renders the reassign form for a request.
func (h *Handler) ShowReassign(c *fiber.Ctx) error {
	appt, err := h.appts.Get(c.UserContext(), token(c), models.ID(c.Params("id")))
	if err != nil {
		return h.flashBack(c, err, "/pending", "", "Request not found.")
	}
	return h.render(c, "reassign", fiber.Map{
		"Title": "Reassign request",
		"Appt":  appt,
		"Form":  models.ReassignForm{Date: appt.AppointmentDate, FromPeriod: timeutil.AM, ToPeriod: timeutil.AM},
	})
}

// Reassign moves a request to a new date and window. An invalid window is
// reported on the form and nothing is sent.
func (h *Handler) Reassign(c *fiber.Ctx) error {
	id := models.ID(c.Params("id"))
	var form models.ReassignForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	ctx, tok := c.UserContext(), token(c)
	if err := h.appts.Reassign(ctx, tok, id, form); err != nil {
		data := fiber.Map{"Title": "Reassign request", "Form": form, "Appt": &models.Appointment{ID: id}}
		if appt, getErr := h.appts.Get(ctx, tok, id); getErr == nil {
			data["Appt"] = appt
		}
		return h.fail(c, err, "reassign", data, "Failed to reassign request.")
	}

	h.flash(c, identity.FlashSuccess, "Request reassigned.")
	return c.Redirect("/pending")
}
