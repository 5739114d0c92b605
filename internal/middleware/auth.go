// Package middleware provides HTTP middleware functions for authentication and authorization.
// These middleware functions protect page routes and enforce permission-based access.
package middleware

import (
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/nav"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/gofiber/fiber/v2"
)

// Context locals set by RequireIdentity.
const (
	LocalIdentity  = "identity"
	LocalNav       = "nav"
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
)

// ForbiddenMessage is shown in place of a page the user may not open.
const ForbiddenMessage = "You don’t have permission to view this page."

// Outcome is the result of a route guard decision.
type Outcome int

// Guard outcomes.
const (
	Allow Outcome = iota
	RedirectLogin
	Unauthorized
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Decide is the pure guard rule. Without an identity the user is sent to
// log in; with one, an empty required permission means authentication only.
// Permissions never imply one another.
func Decide(id *models.Identity, required models.Permission) Outcome {
	if id == nil {
		return RedirectLogin
	}
	if required == "" || id.Has(required) {
		return Allow
	}
	return Unauthorized
}

// CurrentIdentity returns the identity stored by RequireIdentity, or nil.
func CurrentIdentity(c *fiber.Ctx) *models.Identity {
	id, _ := c.Locals(LocalIdentity).(*models.Identity)
	return id
}

// RequireIdentity is a middleware that ensures the user is authenticated.
// It loads the identity from the session and redirects to /login when there
// is none.
//
// Parameters:
//   - provider: Identity provider over the session store
//   - logger: Security logger for session expiry events, may be nil
//
// Returns:
//   - fiber.Handler: Middleware function for app.Use() or route groups
//
// Context Locals Set:
//   - identity: *models.Identity
//   - nav: navigation entries the identity may open
//   - user_id, user_email: for request logging
//
// Example:
//
//	app.Get("/dashboard", middleware.RequireIdentity(provider, logger), ...)
func RequireIdentity(provider *identity.Provider, logger *security.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		expired := provider.Expired(c)

		id, err := provider.Current(c)
		if err != nil || id == nil {
			if expired && logger != nil {
				logger.SecurityEvent(security.EventSessionExpired, "", "", c.IP(), c.Get("User-Agent"),
					map[string]interface{}{"path": c.Path()})
			}
			return c.Redirect("/login")
		}

		c.Locals(LocalIdentity, id)
		c.Locals(LocalNav, nav.ForIdentity(id))
		c.Locals(LocalUserID, id.ID.String())
		c.Locals(LocalUserEmail, id.Email)
		return c.Next()
	}
}

// RequirePermission is a middleware that ensures the user holds perm.
// This middleware MUST be used after RequireIdentity.
//
// A user without the permission gets the inline "no permission" page with
// status 403. There is no redirect.
//
// Example:
//
//	app.Get("/pending",
//	    middleware.RequireIdentity(provider, logger),
//	    middleware.RequirePermission(models.PermApproveRequest),
//	    h.Pending)
func RequirePermission(perm models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch Decide(CurrentIdentity(c), perm) {
		case RedirectLogin:
			return c.Redirect("/login")
		case Unauthorized:
			return c.Status(fiber.StatusForbidden).Render("forbidden", fiber.Map{
				"Title":   "Access denied",
				"Message": ForbiddenMessage,
			}, "layouts/main")
		}
		return c.Next()
	}
}
