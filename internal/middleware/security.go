package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// CSRFField is the form field and session key holding the CSRF token.
const CSRFField = "csrf_token"

// SecurityMiddleware provides centralized security functionality.
type SecurityMiddleware struct {
	logger         *security.Logger
	config         *security.SecurityConfig
	loginLimiter   *security.RateLimiter
	accountLockout *security.AccountLockout
}

// NewSecurityMiddleware creates a new security middleware instance.
func NewSecurityMiddleware(logger *security.Logger, config *security.SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		logger:         logger,
		config:         config,
		loginLimiter:   security.NewRateLimiter(config.LoginRateLimit, config.LoginRefillRate),
		accountLockout: security.NewAccountLockout(config.AccountLockoutThreshold, config.AccountLockoutDuration),
	}
}

// Stop releases the background sweeper of the login limiter.
func (sm *SecurityMiddleware) Stop() {
	sm.loginLimiter.Stop()
}

// CSRFProtection rejects state-changing requests whose token does not match
// the one stored in the session.
func (sm *SecurityMiddleware) CSRFProtection(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		sess, err := store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusForbidden).SendString("Invalid session")
		}

		sessionToken, _ := sess.Get(CSRFField).(string)
		if sessionToken == "" {
			sm.csrfViolation(c, "missing_token")
			return c.Status(fiber.StatusForbidden).SendString("CSRF token missing")
		}

		requestToken := c.Get("X-CSRF-Token")
		if requestToken == "" {
			requestToken = c.FormValue(CSRFField)
		}

		if requestToken != sessionToken {
			sm.csrfViolation(c, "token_mismatch")
			return c.Status(fiber.StatusForbidden).SendString("CSRF token invalid")
		}

		return c.Next()
	}
}

func (sm *SecurityMiddleware) csrfViolation(c *fiber.Ctx, reason string) {
	sm.logger.SecurityEvent(security.EventCSRFViolation, "", "", c.IP(), c.Get("User-Agent"),
		map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"reason": reason,
		})
}

// SetCSRFToken makes the session's CSRF token available to templates,
// creating one on first use.
func (sm *SecurityMiddleware) SetCSRFToken(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Next()
		}

		token, _ := sess.Get(CSRFField).(string)
		if token == "" {
			token = generateCSRFToken()
			sess.Set(CSRFField, token)
			if err := sess.Save(); err != nil {
				sm.logger.Error("save csrf token", err)
			}
		}

		c.Locals(CSRFField, token)
		return c.Next()
	}
}

// LoginAllowed checks the per-IP login limiter and the per-email lockout
// before credentials are sent to the backend. The returned error text is
// shown on the login form.
func (sm *SecurityMiddleware) LoginAllowed(email, ipAddress, userAgent string) error {
	if !sm.loginLimiter.Allow(ipAddress) {
		sm.logger.SecurityEvent(security.EventRateLimitExceeded, "", email, ipAddress, userAgent,
			map[string]interface{}{
				"endpoint": "/login",
				"limit":    sm.config.LoginRateLimit,
			})
		return fmt.Errorf("Too many login attempts. Please try again later.")
	}

	if sm.accountLockout.IsLocked(email) {
		remaining := sm.accountLockout.Remaining(email)
		sm.logger.SecurityEvent(security.EventAccountLocked, "", email, ipAddress, userAgent,
			map[string]interface{}{
				"locked_for": remaining.String(),
			})
		return fmt.Errorf("Account is locked due to too many failed attempts. Try again in %d minutes.", int(remaining.Minutes())+1)
	}

	return nil
}

// RecordLoginFailure counts a failed login towards the email's lockout.
func (sm *SecurityMiddleware) RecordLoginFailure(email, ipAddress, userAgent, reason string) {
	locked := sm.accountLockout.RecordFailure(email)
	sm.logger.SecurityEvent(security.EventLoginFailure, "", email, ipAddress, userAgent,
		map[string]interface{}{
			"locked": locked,
			"reason": reason,
		})
}

// RecordLoginSuccess clears the lockout counter of the email the user signed
// in with, which is the key failures were counted under.
func (sm *SecurityMiddleware) RecordLoginSuccess(email string, id *models.Identity, ipAddress, userAgent string) {
	sm.accountLockout.Reset(email)
	sm.logger.SecurityEvent(security.EventLoginSuccess, id.ID.String(), id.Email, ipAddress, userAgent,
		map[string]interface{}{
			"role": id.Role.Name,
		})
}

// RateLimit throttles a route per signed-in user, or per IP when anonymous.
func (sm *SecurityMiddleware) RateLimit(limiter *security.RateLimiter, endpointName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if email, ok := c.Locals(LocalUserEmail).(string); ok && email != "" {
			identifier = "user_" + email
		}

		if !limiter.Allow(identifier) {
			sm.logger.SecurityEvent(security.EventRateLimitExceeded, "", "", c.IP(), c.Get("User-Agent"),
				map[string]interface{}{
					"endpoint":   endpointName,
					"identifier": identifier,
				})

			c.Set("Retry-After", "60")
			return c.Status(fiber.StatusTooManyRequests).
				SendString("Rate limit exceeded, please try again later")
		}

		return c.Next()
	}
}

// RequestLogger logs every request, and 403 answers as unauthorized access.
func (sm *SecurityMiddleware) RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		sm.logger.HTTPRequest(c.Method(), c.Path(), status, latency.Milliseconds(), c.IP(), c.Get("User-Agent"))

		if status == fiber.StatusForbidden {
			actorID, _ := c.Locals(LocalUserID).(string)
			actorEmail, _ := c.Locals(LocalUserEmail).(string)
			sm.logger.SecurityEvent(security.EventUnauthorizedAccess, actorID, actorEmail, c.IP(), c.Get("User-Agent"),
				map[string]interface{}{
					"method": c.Method(),
					"path":   c.Path(),
					"status": status,
				})
		}

		return err
	}
}

// SecureHeaders adds security headers to responses.
func (sm *SecurityMiddleware) SecureHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; connect-src 'self'; frame-ancestors 'none'")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("X-Frame-Options", "DENY")
		if sm.config.SessionSecure {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		return c.Next()
	}
}

// generateCSRFToken generates a cryptographically secure random token.
func generateCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.URLEncoding.EncodeToString([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	}
	return base64.URLEncoding.EncodeToString(b)
}
