package handlers

import (
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Profile shows the signed-in user's own record, found in GET /users by email.
func (h *Handler) Profile(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	data := fiber.Map{
		"Title":   "My Profile",
		"Profile": models.UserProfile{FirstName: id.FirstName, LastName: id.LastName, Email: id.Email},
	}

	profile, err := h.api.Profile(c.UserContext(), id.AccessToken, id.Email)
	if err != nil {
		return h.fail(c, err, "profile", data, "Failed to load profile.")
	}
	data["Profile"] = profile
	return h.render(c, "profile", data)
}

// UpdateProfile saves the user's own record. The names kept in the session
// are refreshed from what the API stored.
//
// Form Data:
//   - firstName, middleName, lastName, email, phone
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	var form models.UserProfile
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	form.ID = id.ID
	form.Email = strings.TrimSpace(form.Email)
	form.FirstName = h.validate.SanitizeString(form.FirstName)
	form.MiddleName = h.validate.SanitizeString(form.MiddleName)
	form.LastName = h.validate.SanitizeString(form.LastName)

	data := fiber.Map{"Title": "My Profile", "Profile": form}
	if err := h.validate.Struct(form); err != nil {
		return h.fail(c, err, "profile", data, "")
	}

	saved, err := h.api.UpdateProfile(c.UserContext(), id.AccessToken, form)
	if err != nil {
		return h.fail(c, err, "profile", data, "Failed to update profile.")
	}

	updated := *id
	updated.FirstName = saved.FirstName
	updated.LastName = saved.LastName
	if saved.Email != "" {
		updated.Email = saved.Email
	}
	if err := h.provider.UpdateUser(c, &updated); err != nil {
		h.logger.Error("refresh session identity", err)
	}

	h.flash(c, identity.FlashSuccess, "Profile updated successfully!")
	return c.Redirect("/profile")
}
