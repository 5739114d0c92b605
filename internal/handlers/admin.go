package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/Tsedenia-Nega/Appointment-management/internal/services"
	"github.com/gofiber/fiber/v2"
)

// ============================================================================
// Roles
// ============================================================================

// Roles lists the administrable roles and their permissions. The CEO role
// is never listed.
//
// Template: roles/list.html with Roles
func (h *Handler) Roles(c *fiber.Ctx) error {
	data := fiber.Map{"Title": "Manage Roles", "Roles": []models.Role{}}

	roles, err := h.roles.List(c.UserContext(), token(c))
	if err != nil {
		return h.fail(c, err, "roles/list", data, "Failed to load roles.")
	}
	data["Roles"] = roles
	return h.render(c, "roles/list", data)
}

// ShowRole renders the permission checkboxes of one role.
func (h *Handler) ShowRole(c *fiber.Ctx) error {
	role, err := h.roles.Find(c.UserContext(), token(c), c.Params("name"))
	if err != nil {
		return h.flashBack(c, err, "/roles", "", "Failed to load role.")
	}
	return h.render(c, "roles/edit", roleData(role, role.Permissions))
}

func roleData(role *models.Role, selected models.PermissionSet) fiber.Map {
	return fiber.Map{
		"Title":       role.DisplayName(),
		"Role":        role,
		"Permissions": models.AllPermissions,
		"Selected":    selected,
	}
}

// SaveRole grants and revokes permissions so the role matches the checked
// boxes. The role is re-read first so the diff is against what the API
// holds now.
//
// Form Data:
//   - permissions: repeated permission keys
//
// Side Effects:
//   - POST /roles/:name/permissions for added keys, then DELETE for removed keys
//   - Logs the change as a security event
func (h *Handler) SaveRole(c *fiber.Ctx) error {
	ctx, tok := c.UserContext(), token(c)
	role, err := h.roles.Find(ctx, tok, c.Params("name"))
	if err != nil {
		return h.flashBack(c, err, "/roles", "", "Failed to load role.")
	}

	selected := models.NewPermissionSet()
	for _, raw := range c.Request().PostArgs().PeekMulti("permissions") {
		selected.Add(models.Permission(raw))
	}

	res, err := h.roles.Save(ctx, tok, role.Name, role.Permissions, selected)
	if err != nil {
		return h.fail(c, err, "roles/edit", roleData(role, selected), "Failed to update permissions.")
	}

	if !res.Changed() {
		h.flash(c, identity.FlashSuccess, "No changes to save.")
		return c.Redirect("/roles")
	}

	actor := middleware.CurrentIdentity(c)
	h.logger.SecurityEvent(security.EventRolePermissions, actor.ID.String(), actor.Email, c.IP(), c.Get("User-Agent"),
		map[string]interface{}{
			"role":    role.Name,
			"granted": res.Granted,
			"revoked": res.Revoked,
		})
	h.flash(c, identity.FlashSuccess, fmt.Sprintf("Permissions for %s updated.", role.DisplayName()))
	return c.Redirect("/roles")
}

// ============================================================================
// Accounts
// ============================================================================

// ShowSignup renders the create-account form.
//
// The role dropdown comes from GET /auth/roles, retried with backoff. When
// it keeps failing the default role list is offered and the page says so.
func (h *Handler) ShowSignup(c *fiber.Ctx) error {
	data := fiber.Map{"Title": "Create Account", "Form": models.SignupForm{}}
	if err := h.addRoleOptions(c, data); err != nil {
		return h.fail(c, err, "signup", data, "Failed to load roles.")
	}
	return h.render(c, "signup", data)
}

func (h *Handler) addRoleOptions(c *fiber.Ctx, data fiber.Map) error {
	roles, fallback, err := h.api.AssignableRoles(c.UserContext())
	data["Roles"] = roles
	data["Fallback"] = fallback
	return err
}

// Signup creates a staff account.
//
// Form Data:
//   - firstName, middleName, lastName, email, password, role
//
// Side Effects:
//   - POST /auth/signup
//   - Logs account creation as a security event
func (h *Handler) Signup(c *fiber.Ctx) error {
	var form models.SignupForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	form.Email = strings.TrimSpace(form.Email)
	form.FirstName = h.validate.SanitizeString(form.FirstName)
	form.MiddleName = h.validate.SanitizeString(form.MiddleName)
	form.LastName = h.validate.SanitizeString(form.LastName)

	data := fiber.Map{"Title": "Create Account", "Form": form}
	reshow := func(err error) error {
		if roleErr := h.addRoleOptions(c, data); roleErr != nil {
			data["Roles"] = []string{}
		}
		return h.fail(c, err, "signup", data, "Failed to create account.")
	}

	if err := h.validate.Struct(form); err != nil {
		return reshow(err)
	}
	if strings.EqualFold(form.Role, models.RoleCEO) {
		return reshow(&security.ValidationError{Fields: []security.FieldError{{Field: "role", Tag: "oneof", Message: "Please select a valid role."}}})
	}

	if err := h.api.Signup(c.UserContext(), token(c), form); err != nil {
		return reshow(err)
	}

	actor := middleware.CurrentIdentity(c)
	h.logger.SecurityEvent(security.EventAccountCreate, actor.ID.String(), actor.Email, c.IP(), c.Get("User-Agent"),
		map[string]interface{}{
			"email": form.Email,
			"role":  form.Role,
		})
	h.flash(c, identity.FlashSuccess, "Account created for "+form.Email+".")
	return c.Redirect("/signup")
}

// ============================================================================
// Integrity tiers
// ============================================================================

// IntegrityTiers lists the visit-frequency categories.
func (h *Handler) IntegrityTiers(c *fiber.Ctx) error {
	data := fiber.Map{"Title": "Integrity", "Tiers": []models.IntegrityTier{}}

	tiers, err := h.tiers.List(c.UserContext(), token(c))
	if err != nil {
		return h.fail(c, err, "integrity/list", data, "Failed to load integrity categories.")
	}
	data["Tiers"] = tiers
	return h.render(c, "integrity/list", data)
}

func tierData(tier models.IntegrityTier, visits, listing string) fiber.Map {
	data := fiber.Map{
		"Tier":    tier,
		"Names":   models.TierNames,
		"Visits":  visits,
		"Listing": listing,
	}
	if tier.ID == "" {
		data["Title"], data["Heading"], data["Action"] = "Add category", "Add category", "/integrity"
	} else {
		data["Title"], data["Heading"] = "Edit category", "Edit category"
		data["Action"] = "/integrity/" + url.PathEscape(tier.ID.String())
	}
	return data
}

// encodeListing renders the categories a form was built from into its hidden
// listing field.
func encodeListing(tiers []models.IntegrityTier) string {
	if tiers == nil {
		tiers = []models.IntegrityTier{}
	}
	data, err := json.Marshal(tiers)
	if err != nil {
		return ""
	}
	return string(data)
}

// decodeListing reads the hidden listing field. Nil means the form carried
// none, or none that could be read.
func decodeListing(raw string) []models.IntegrityTier {
	if raw == "" {
		return nil
	}
	var tiers []models.IntegrityTier
	if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
		return nil
	}
	if tiers == nil {
		return nil
	}
	return tiers
}

// NewIntegrityTier renders an empty category form.
func (h *Handler) NewIntegrityTier(c *fiber.Ctx) error {
	tiers, err := h.tiers.List(c.UserContext(), token(c))
	if err != nil {
		return h.flashBack(c, err, "/integrity", "", "Failed to load integrity categories.")
	}
	return h.render(c, "integrity/form", tierData(models.IntegrityTier{Period: models.PeriodMonth}, "0", encodeListing(tiers)))
}

// EditIntegrityTier renders the form of an existing category.
func (h *Handler) EditIntegrityTier(c *fiber.Ctx) error {
	tiers, err := h.tiers.List(c.UserContext(), token(c))
	if err != nil {
		return h.flashBack(c, err, "/integrity", "", "Failed to load integrity category.")
	}
	tier, err := services.FindTier(tiers, models.ID(c.Params("id")))
	if err != nil {
		return h.flashBack(c, err, "/integrity", "", "Failed to load integrity category.")
	}
	return h.render(c, "integrity/form", tierData(*tier, fmt.Sprint(tier.Visits), encodeListing(tiers)))
}

// CreateIntegrityTier adds a category.
func (h *Handler) CreateIntegrityTier(c *fiber.Ctx) error {
	return h.saveTier(c, "")
}

// UpdateIntegrityTier changes a category.
func (h *Handler) UpdateIntegrityTier(c *fiber.Ctx) error {
	return h.saveTier(c, models.ID(c.Params("id")))
}

// saveTier validates and stores a category. A name already used by another
// category in the listing the form was rendered from is reported on the form
// and nothing is written.
func (h *Handler) saveTier(c *fiber.Ctx, id models.ID) error {
	tier := models.IntegrityTier{
		ID:     id,
		Name:   strings.TrimSpace(c.FormValue("name")),
		Period: strings.TrimSpace(c.FormValue("period")),
	}
	raw, listing := c.FormValue("visits"), c.FormValue("listing")
	data := tierData(tier, raw, listing)

	visits, err := models.ParseVisits(raw)
	if err != nil {
		data["Error"] = err.Error()
		return h.render(c, "integrity/form", data)
	}
	tier.Visits = visits
	data["Tier"] = tier

	if err := h.tiers.Save(c.UserContext(), token(c), tier, decodeListing(listing)); err != nil {
		return h.fail(c, err, "integrity/form", data, "Failed to save integrity category.")
	}

	actor := middleware.CurrentIdentity(c)
	h.logger.SecurityEvent(security.EventTierChange, actor.ID.String(), actor.Email, c.IP(), c.Get("User-Agent"),
		map[string]interface{}{
			"tier":   tier.Name,
			"visits": tier.Visits,
			"period": tier.Period,
		})
	h.flash(c, identity.FlashSuccess, "Integrity category saved.")
	return c.Redirect("/integrity")
}

// DeleteIntegrityTier removes a category.
func (h *Handler) DeleteIntegrityTier(c *fiber.Ctx) error {
	err := h.tiers.Delete(c.UserContext(), token(c), models.ID(c.Params("id")))
	return h.flashBack(c, err, "/integrity", "Integrity category deleted.", "Failed to delete integrity category.")
}
