package handlers

import (
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Dashboard shows the request counts and today's appointments.
//
// Template: dashboard.html with Stats
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	data := fiber.Map{"Title": "Dashboard", "Stats": &models.DashboardStats{}}

	stats, err := h.appts.Dashboard(c.UserContext(), token(c))
	if err != nil {
		return h.fail(c, err, "dashboard", data, "Failed to load dashboard.")
	}
	data["Stats"] = stats
	return h.render(c, "dashboard", data)
}
