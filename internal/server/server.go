// Package server assembles the fiber application: middleware chain, session
// store, static assets and every portal route.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/handlers"
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/Tsedenia-Nega/Appointment-management/internal/telemetry"
	"github.com/Tsedenia-Nega/Appointment-management/internal/ws"
	"github.com/Tsedenia-Nega/Appointment-management/web"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

// Options are the collaborators of the application.
type Options struct {
	Security *security.SecurityConfig
	Logger   *security.Logger
	Store    *session.Store
	Guard    *middleware.SecurityMiddleware
	Identity *identity.Provider
	Handler  *handlers.Handler
	Hub      *ws.Hub
	Metrics  *telemetry.Metrics // nil disables /metrics

	// Views defaults to the embedded templates.
	Views fiber.Views
}

// NewStore creates the session store. A nil storage keeps sessions in memory.
//
// Parameters:
//   - cfg: cookie settings; Expiration is cfg.SessionTimeout
//   - storage: persisted backend from sessionstore.Open, or nil
//
// Returns:
//   - *session.Store: store shared by the identity provider and CSRF middleware
func NewStore(cfg *security.SecurityConfig, storage fiber.Storage) *session.Store {
	return session.New(session.Config{
		Expiration:     cfg.SessionTimeout,
		Storage:        storage,
		CookieName:     cfg.SessionCookieName,
		CookieSecure:   cfg.SessionSecure,
		CookieHTTPOnly: cfg.SessionHTTPOnly,
		CookieSameSite: cfg.SessionSameSite,
		CookiePath:     "/",
		KeyGenerator:   uuid.NewString,
	})
}

// New builds the application.
func New(o Options) *fiber.App {
	views := o.Views
	if views == nil {
		views = web.NewEngine("")
	}

	app := fiber.New(fiber.Config{
		Views:             views,
		ViewsLayout:       "layouts/main",
		PassLocalsToViews: true,
		ErrorHandler:      errorHandler(o.Logger),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	})

	// Panic recovery (should be first)
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if o.Metrics != nil {
		app.Use(o.Metrics.Middleware())
	}
	app.Use(o.Guard.RequestLogger())
	app.Use(o.Guard.SecureHeaders())

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Static()),
		MaxAge: 3600,
	}))

	// Probes and the websocket carry no CSRF token.
	h := o.Handler
	app.Get("/health", h.Health)
	if o.Metrics != nil {
		app.Get("/metrics", o.Metrics.Handler())
	}
	app.Get("/ws", ws.Upgrade(o.Identity.SessionID), o.Hub.Handler())

	app.Use(o.Guard.SetCSRFToken(o.Store))
	app.Use(o.Guard.CSRFProtection(o.Store))

	routes(app, o)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	return app
}

func routes(app *fiber.App, o Options) {
	h := o.Handler
	publicForms := security.NewRateLimiter(o.Security.PublicFormRateLimit, o.Security.PublicFormRefillRate)
	throttle := o.Guard.RateLimit(publicForms, "public_form")

	// ========================================
	// Public Routes (No Authentication)
	// ========================================
	app.Get("/", h.Root)
	app.Get("/login", h.ShowLogin)
	app.Post("/login", h.Login)
	app.Get("/logout", h.Logout)
	app.Post("/logout", h.Logout)
	app.Get("/forgot-password", h.ShowForgotPassword)
	app.Post("/forgot-password", throttle, h.ForgotPassword)
	app.Get("/reset-password/:token", h.ShowResetPassword)
	app.Post("/reset-password/:token", throttle, h.ResetPassword)
	app.Get("/register-ceo", h.ShowRegisterCEO)
	app.Post("/register-ceo", throttle, h.RegisterCEO)

	// ========================================
	// Authenticated Routes
	// ========================================
	// Each page checks exactly one permission; none implies another.
	signedIn := middleware.RequireIdentity(o.Identity, o.Logger)
	need := middleware.RequirePermission

	app.Get("/profile", signedIn, h.Profile)
	app.Post("/profile", signedIn, h.UpdateProfile)

	app.Get("/dashboard", signedIn, need(models.PermViewDashboard), h.Dashboard)

	// Appointments
	app.Get("/create", signedIn, need(models.PermCreateAppointment), h.ShowCreateAppointment)
	app.Post("/create", signedIn, need(models.PermCreateAppointment), h.CreateAppointment)
	app.Get("/view", signedIn, need(models.PermViewAppointment), h.Appointments)
	app.Get("/view/:id", signedIn, need(models.PermViewAppointment), h.ShowAppointment)
	app.Post("/view/:id/delete", signedIn, need(models.PermCreateAppointment), h.DeleteAppointment)
	app.Get("/edit/:id", signedIn, need(models.PermCreateAppointment), h.ShowEditAppointment)
	app.Post("/edit/:id", signedIn, need(models.PermCreateAppointment), h.UpdateAppointment)

	// Approvals
	approver := []fiber.Handler{signedIn, need(models.PermApproveRequest)}
	app.Get("/appointment", append(approver, h.Ledger)...)
	app.Get("/pending", append(approver, h.Pending)...)
	app.Post("/pending/:id/approve", append(approver, h.Approve)...)
	app.Post("/pending/:id/reject", append(approver, h.Reject)...)
	app.Get("/pending/:id/reassign", append(approver, h.ShowReassign)...)
	app.Post("/pending/:id/reassign", append(approver, h.Reassign)...)

	// Gate
	app.Get("/checkin", signedIn, need(models.PermCheckIn), h.CheckInList)
	app.Post("/checkin/:id", signedIn, need(models.PermCheckIn), h.CheckIn)
	app.Get("/security", signedIn, need(models.PermCheckOut), h.SecurityList)
	app.Post("/security/:id/pass", signedIn, need(models.PermCheckOut), h.SecurityPass)
	app.Post("/security/:id/checkout", signedIn, need(models.PermCheckOut), h.CheckOut)

	// Administration
	roles := need(models.PermManageRoles)
	app.Get("/roles", signedIn, roles, h.Roles)
	app.Get("/roles/:name", signedIn, roles, h.ShowRole)
	app.Post("/roles/:name", signedIn, roles, h.SaveRole)
	app.Get("/signup", signedIn, roles, h.ShowSignup)
	app.Post("/signup", signedIn, roles, h.Signup)

	integrity := need(models.PermManageIntegrity)
	app.Get("/integrity", signedIn, integrity, h.IntegrityTiers)
	app.Get("/integrity/new", signedIn, integrity, h.NewIntegrityTier)
	app.Post("/integrity", signedIn, integrity, h.CreateIntegrityTier)
	app.Get("/integrity/:id/edit", signedIn, integrity, h.EditIntegrityTier)
	app.Post("/integrity/:id", signedIn, integrity, h.UpdateIntegrityTier)
	app.Post("/integrity/:id/delete", signedIn, integrity, h.DeleteIntegrityTier)
}

// errorHandler renders the error page. Server errors are logged and their
// detail is not shown.
func errorHandler(logger *security.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Something went wrong. Please try again."

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			if code < fiber.StatusInternalServerError {
				msg = fe.Message
			}
		}
		if code == fiber.StatusNotFound {
			msg = "Page not found."
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed: "+c.Method()+" "+c.Path(), err)
		}

		c.Status(code)
		if renderErr := c.Render("error", fiber.Map{
			"Title":   http.StatusText(code),
			"Status":  code,
			"Message": msg,
		}, "layouts/blank"); renderErr != nil {
			return c.SendString(msg)
		}
		return nil
	}
}
