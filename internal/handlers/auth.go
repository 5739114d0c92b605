package handlers

import (
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/nav"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/gofiber/fiber/v2"
)

// Login page notices, selected by query flag.
const (
	noticeExpired    = "Your session has expired. Please log in again."
	noticeReset      = "Password reset successfully. Please log in."
	noticeRegistered = "CEO registered successfully! Please log in."
)

// Root sends signed-in users to their landing page and everyone else to /login.
func (h *Handler) Root(c *fiber.Ctx) error {
	id, err := h.provider.Current(c)
	if err != nil || id == nil {
		return c.Redirect("/login")
	}
	return c.Redirect(nav.LandingPath(id.Role.Permissions))
}

// ShowLogin renders the login page for unauthenticated users.
// Displays login form using blank layout without navigation.
//
// Parameters:
//   - c: Fiber context containing request and response
//
// Returns:
//   - error: Render error if template fails, nil on success
//
// Query Flags:
//   - expired=1: the backend rejected the previous session
//   - reset=1: a password reset just completed
//   - registered=1: the CEO account was just created
func (h *Handler) ShowLogin(c *fiber.Ctx) error {
	if id, err := h.provider.Current(c); err == nil && id != nil {
		return c.Redirect(nav.LandingPath(id.Role.Permissions))
	}

	data := fiber.Map{"Title": "Login", "Email": ""}
	switch {
	case c.Query("expired") != "":
		data["Notice"] = noticeExpired
	case c.Query("reset") != "":
		data["Success"] = noticeReset
	case c.Query("registered") != "":
		data["Success"] = noticeRegistered
	}
	h.addCEOPrompt(c, data)
	return h.renderIn(c, "login", data, layoutBlank)
}

// addCEOPrompt offers CEO registration while no CEO exists. Lookup failures
// hide the prompt.
func (h *Handler) addCEOPrompt(c *fiber.Ctx, data fiber.Map) {
	exists, err := h.api.CEOExists(c.UserContext())
	data["CEOMissing"] = err == nil && !exists
}

// Login authenticates user credentials and creates a session.
//
// Parameters:
//   - c: Fiber context containing form data (email, password)
//
// Returns:
//   - error: Render error with message if authentication fails, redirect on success
//
// Form Data:
//   - email: User's email address for authentication
//   - password: User's password, forwarded to the API once
//
// Side Effects:
//   - Stores token and user in a regenerated session on success
//   - Redirects to the first page the role unlocks
//   - Logs login success and failure as security events
//   - Counts failures towards the per-email lockout
func (h *Handler) Login(c *fiber.Ctx) error {
	var form models.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	form.Email = strings.TrimSpace(form.Email)

	data := fiber.Map{"Title": "Login", "Email": form.Email}
	renderErr := func(msg string) error {
		data["Error"] = msg
		h.addCEOPrompt(c, data)
		return h.renderIn(c, "login", data, layoutBlank)
	}

	if err := h.validate.Struct(form); err != nil {
		return renderErr(message(err, "Please enter your email and password."))
	}

	ip, ua := c.IP(), c.Get("User-Agent")
	if err := h.secure.LoginAllowed(form.Email, ip, ua); err != nil {
		return renderErr(err.Error())
	}

	result, err := h.auth.Login(c.UserContext(), form.Email, form.Password)
	if err != nil {
		if credentialsRejected(err) {
			h.secure.RecordLoginFailure(form.Email, ip, ua, "backend_rejected")
		}
		return renderErr(message(err, "Login failed. Please check your credentials."))
	}

	if err := h.provider.SetUser(c, result.Identity); err != nil {
		h.logger.Error("store session identity", err)
		return renderErr("Could not start your session. Please try again.")
	}
	h.secure.RecordLoginSuccess(form.Email, result.Identity, ip, ua)

	return c.Redirect(result.Landing)
}

// Logout destroys the user session and redirects to login page.
//
// Side Effects:
//   - Destroys the session and its stored identity
//   - Tells the session's other open pages to leave
//   - Logs the logout as a security event
func (h *Handler) Logout(c *fiber.Ctx) error {
	id, _ := h.provider.Current(c)
	if id != nil {
		h.logger.SecurityEvent(security.EventLogout, id.ID.String(), id.Email, c.IP(), c.Get("User-Agent"),
			map[string]interface{}{})
	}

	if err := h.provider.Logout(c); err != nil {
		h.logger.Error("logout", err)
	}
	return c.Redirect("/login")
}

// ShowForgotPassword renders the reset request form.
func (h *Handler) ShowForgotPassword(c *fiber.Ctx) error {
	return h.renderIn(c, "forgot_password", fiber.Map{"Title": "Forgot password", "Email": ""}, layoutBlank)
}

// ForgotPassword asks the API to email a reset link.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var form models.ForgotPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	form.Email = strings.TrimSpace(form.Email)

	data := fiber.Map{"Title": "Forgot password", "Email": form.Email}
	if err := h.validate.Struct(form); err != nil {
		data["Error"] = message(err, "")
		return h.renderIn(c, "forgot_password", data, layoutBlank)
	}

	msg, err := h.api.ForgotPassword(c.UserContext(), form.Email)
	if err != nil {
		data["Error"] = message(err, "Something went wrong")
		return h.renderIn(c, "forgot_password", data, layoutBlank)
	}

	h.logger.SecurityEvent(security.EventPasswordReset, "", form.Email, c.IP(), c.Get("User-Agent"),
		map[string]interface{}{"stage": "requested"})
	data["Success"] = msg
	return h.renderIn(c, "forgot_password", data, layoutBlank)
}

// ShowResetPassword renders the new password form for an emailed token.
func (h *Handler) ShowResetPassword(c *fiber.Ctx) error {
	return h.renderIn(c, "reset_password", fiber.Map{
		"Title": "Reset password",
		"Token": c.Params("token"),
	}, layoutBlank)
}

// ResetPassword sets the new password and sends the user to log in.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	resetToken := c.Params("token")
	var form models.ResetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	data := fiber.Map{"Title": "Reset password", "Token": resetToken}
	if err := h.validate.ValidatePasswordPair(form.Password, form.ConfirmPassword, h.config.MinResetPasswordLength); err != nil {
		data["Error"] = err.Error()
		return h.renderIn(c, "reset_password", data, layoutBlank)
	}

	if err := h.api.ResetPassword(c.UserContext(), resetToken, form.Password); err != nil {
		data["Error"] = message(err, "Failed to reset password.")
		return h.renderIn(c, "reset_password", data, layoutBlank)
	}

	h.logger.SecurityEvent(security.EventPasswordReset, "", "", c.IP(), c.Get("User-Agent"),
		map[string]interface{}{"stage": "completed"})
	return c.Redirect("/login?reset=1")
}

// ShowRegisterCEO renders the bootstrap administrator form, or sends the
// user to log in once a CEO exists.
func (h *Handler) ShowRegisterCEO(c *fiber.Ctx) error {
	if exists, err := h.api.CEOExists(c.UserContext()); err == nil && exists {
		return c.Redirect("/login")
	}
	return h.renderIn(c, "register_ceo", fiber.Map{
		"Title": "Register CEO",
		"Form":  models.CEORegistrationForm{},
	}, layoutBlank)
}

// RegisterCEO creates the bootstrap administrator.
func (h *Handler) RegisterCEO(c *fiber.Ctx) error {
	var form models.CEORegistrationForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}
	form.Email = strings.TrimSpace(form.Email)

	data := fiber.Map{"Title": "Register CEO", "Form": form}
	if err := h.validate.Struct(form); err != nil {
		data["Error"] = message(err, "")
		return h.renderIn(c, "register_ceo", data, layoutBlank)
	}

	if err := h.api.RegisterCEO(c.UserContext(), form); err != nil {
		data["Error"] = message(err, "Failed to register CEO.")
		return h.renderIn(c, "register_ceo", data, layoutBlank)
	}

	h.logger.SecurityEvent(security.EventCEORegister, "", form.Email, c.IP(), c.Get("User-Agent"),
		map[string]interface{}{})
	return c.Redirect("/login?registered=1")
}
