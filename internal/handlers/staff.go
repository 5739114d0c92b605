package handlers

import (
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/services"
	"github.com/gofiber/fiber/v2"
)

// gateData loads the gate worklist filtered by the q and date query values.
func (h *Handler) gateData(c *fiber.Ctx, title string) (fiber.Map, error) {
	search, date := c.Query("q"), c.Query("date")
	data := fiber.Map{
		"Title":  title,
		"Search": search,
		"Date":   date,
		"Visits": []models.Visit{},
	}

	visits, err := h.visits.List(c.UserContext(), token(c))
	if err != nil {
		return data, err
	}
	data["Visits"] = services.FilterVisits(visits, search, date)
	return data, nil
}

// CheckInList shows approved and reassigned visitors with their check-in state.
//
// Template: checkin.html with Visits, Search, Date
func (h *Handler) CheckInList(c *fiber.Ctx) error {
	data, err := h.gateData(c, "Check In")
	if err != nil {
		return h.fail(c, err, "checkin", data, "Failed to load visitors.")
	}
	return h.render(c, "checkin", data)
}

// CheckIn records a visitor's arrival.
func (h *Handler) CheckIn(c *fiber.Ctx) error {
	err := h.visits.CheckIn(c.UserContext(), token(c), models.ID(c.Params("id")))
	return h.flashBack(c, err, "/checkin", "Visitor checked in.", "Failed to check in visitor.")
}

// SecurityList shows the security check and checkout controls. The
// checkout control stays disabled until security has passed.
//
// Template: security.html with Visits, Search, Date
func (h *Handler) SecurityList(c *fiber.Ctx) error {
	data, err := h.gateData(c, "Security Check")
	if err != nil {
		return h.fail(c, err, "security", data, "Failed to load visitors.")
	}
	return h.render(c, "security", data)
}

// SecurityPass records that a visitor passed the security check.
func (h *Handler) SecurityPass(c *fiber.Ctx) error {
	err := h.visits.SecurityPass(c.UserContext(), token(c), models.ID(c.Params("id")))
	return h.flashBack(c, err, "/security", "Security check passed.", "Failed to update security status.")
}

// CheckOut records a visitor's departure. It is refused, with nothing sent,
// while security has not passed.
func (h *Handler) CheckOut(c *fiber.Ctx) error {
	err := h.visits.CheckOut(c.UserContext(), token(c), models.ID(c.Params("id")))
	return h.flashBack(c, err, "/security", "Visitor checked out.", "Failed to check out visitor.")
}
