package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health reports process liveness and, when sessions are persisted, whether
// the session database answers. A down database answers 503.
func (h *Handler) Health(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok", "database": "n/a"}
	if h.health == nil {
		return c.JSON(status)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if h.health(ctx) {
		status["database"] = "up"
		return c.JSON(status)
	}
	status["status"] = "degraded"
	status["database"] = "down"
	return c.Status(fiber.StatusServiceUnavailable).JSON(status)
}
