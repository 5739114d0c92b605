// Package handlers implements the page controllers of the visitor portal.
//
// Every handler follows the same data cycle: read the session identity, call
// the visitor API through a service, and render. Mutations wait for the API
// to confirm, then redirect so the next page load re-fetches (post/redirect/get).
package handlers

import (
	"context"
	"errors"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/Tsedenia-Nega/Appointment-management/internal/services"
	"github.com/Tsedenia-Nega/Appointment-management/internal/timeutil"
	"github.com/gofiber/fiber/v2"
)

// Layouts.
const (
	layoutMain  = "layouts/main"
	layoutBlank = "layouts/blank"
)

// ExpiredPath is where a session ended by a backend 401 is sent.
const ExpiredPath = "/login?expired=1"

// Deps are the collaborators a Handler needs.
type Deps struct {
	API      *backend.Client
	Identity *identity.Provider
	Logger   *security.Logger
	Security *middleware.SecurityMiddleware
	Config   *security.SecurityConfig

	// Health reports whether the session database answers. Nil when
	// sessions are kept in memory.
	Health func(ctx context.Context) bool
}

// Handler serves every portal page.
type Handler struct {
	api      *backend.Client
	provider *identity.Provider
	logger   *security.Logger
	secure   *middleware.SecurityMiddleware
	config   *security.SecurityConfig
	validate *security.ValidationService
	health   func(ctx context.Context) bool

	auth   *services.AuthService
	appts  *services.AppointmentService
	visits *services.VisitService
	roles  *services.RoleService
	tiers  *services.TierService
}

// New creates a Handler and the services behind it.
//
// Parameters:
//   - deps: API client, identity provider, logger and security components
//
// Returns:
//   - *Handler: Handler ready to be mounted by the server package
func New(deps Deps) *Handler {
	config := deps.Config
	if config == nil {
		config = security.DefaultSecurityConfig()
	}
	validate := security.NewValidationService(config)

	return &Handler{
		api:      deps.API,
		provider: deps.Identity,
		logger:   deps.Logger,
		secure:   deps.Security,
		config:   config,
		validate: validate,
		health:   deps.Health,
		auth:     services.NewAuthService(deps.API),
		appts:    services.NewAppointmentService(deps.API, validate),
		visits:   services.NewVisitService(deps.API),
		roles:    services.NewRoleService(deps.API),
		tiers:    services.NewTierService(deps.API, validate),
	}
}

// token returns the bearer token of the signed-in user.
func token(c *fiber.Ctx) string {
	if id := middleware.CurrentIdentity(c); id != nil {
		return id.AccessToken
	}
	return ""
}

// render draws a page inside the main layout, adding any pending flash.
func (h *Handler) render(c *fiber.Ctx, name string, data fiber.Map) error {
	return h.renderIn(c, name, data, layoutMain)
}

func (h *Handler) renderIn(c *fiber.Ctx, name string, data fiber.Map, layout string) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["Flash"]; !ok {
		if f := h.provider.TakeFlash(c); f != nil {
			data["Flash"] = f
		}
	}
	data["Active"] = c.Path()
	return c.Render(name, data, layout)
}

// fail re-renders tpl with an error banner. A backend 401 ends the session
// instead.
func (h *Handler) fail(c *fiber.Ctx, err error, tpl string, data fiber.Map, fallback string) error {
	if errors.Is(err, backend.ErrUnauthorized) {
		return h.expire(c)
	}
	if data == nil {
		data = fiber.Map{}
	}
	data["Error"] = message(err, fallback)
	return h.render(c, tpl, data)
}

// flashBack stores the outcome of a mutation and redirects to path.
func (h *Handler) flashBack(c *fiber.Ctx, err error, path, success, fallback string) error {
	switch {
	case err == nil:
		h.flash(c, identity.FlashSuccess, success)
	case errors.Is(err, backend.ErrUnauthorized):
		return h.expire(c)
	default:
		h.flash(c, identity.FlashError, message(err, fallback))
	}
	return c.Redirect(path)
}

func (h *Handler) flash(c *fiber.Ctx, kind, text string) {
	if err := h.provider.Flash(c, kind, text); err != nil {
		h.logger.Error("store flash", err)
	}
}

// expire ends a session the backend no longer accepts.
func (h *Handler) expire(c *fiber.Ctx) error {
	var actorID, actorEmail string
	if id := middleware.CurrentIdentity(c); id != nil {
		actorID, actorEmail = id.ID.String(), id.Email
	}
	h.logger.SecurityEvent(security.EventBackendUnauthorized, actorID, actorEmail, c.IP(), c.Get("User-Agent"),
		map[string]interface{}{"path": c.Path()})

	if err := h.provider.Logout(c); err != nil {
		h.logger.Error("end rejected session", err)
	}
	return c.Redirect(ExpiredPath)
}

// known errors carry text written for the page.
var known = []error{
	services.ErrSecurityNotPassed,
	services.ErrAlreadyCheckedIn,
	services.ErrAlreadyPassed,
	services.ErrAlreadyCheckedOut,
	services.ErrRoleNotFound,
	services.ErrTierNotFound,
	services.ErrMissingToken,
	backend.ErrProfileNotFound,
	timeutil.ErrEndBeforeStart,
}

// message picks the banner text for err.
// credentialsRejected reports whether the API itself refused a login. Outages,
// an open breaker and server errors do not count towards a lockout.
func credentialsRejected(err error) bool {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case fiber.StatusBadRequest, fiber.StatusUnauthorized, fiber.StatusForbidden:
		return true
	}
	return false
}

func message(err error, fallback string) string {
	var verr *security.ValidationError
	var dup *models.DuplicateTierError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.First()
	case errors.As(err, &dup):
		return dup.Error()
	case errors.Is(err, timeutil.ErrInvalidTime):
		return "Please select a valid time."
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return backend.UserMessage(err, fallback)
}
