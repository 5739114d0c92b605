// Package security provides centralized security configuration and utilities.
package security

import (
	"time"
)

// SecurityConfig holds all security-related configuration values.
type SecurityConfig struct {
	// Session cookie
	SessionTimeout    time.Duration // Session inactivity timeout
	SessionCookieName string        // Name of session cookie
	SessionSecure     bool          // Require HTTPS for session cookies
	SessionHTTPOnly   bool          // Prevent JavaScript access to session cookies
	SessionSameSite   string        // SameSite attribute

	// Brute force protection on POST /login
	LoginRateLimit          int           // Max login attempts per minute per IP
	LoginRefillRate         time.Duration // Time to regain one attempt
	AccountLockoutThreshold int           // Failed attempts for one email before lockout
	AccountLockoutDuration  time.Duration // How long the email stays locked

	// Public forms that make the backend send mail or create accounts
	PublicFormRateLimit  int           // Max submissions per IP
	PublicFormRefillRate time.Duration // Time to regain one submission

	// Password rules mirrored from the visitor API
	MinPasswordLength      int // Account creation
	MinResetPasswordLength int // Password reset

	// Outbound calls
	RoleFetchAttempts int           // GET /auth/roles attempts before falling back
	RoleFetchBaseWait time.Duration // First retry delay, doubled each attempt
}

// DefaultSecurityConfig returns security configuration with recommended defaults.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		SessionTimeout:    8 * time.Hour,
		SessionCookieName: "gatepass_session",
		SessionSecure:     true,
		SessionHTTPOnly:   true,
		SessionSameSite:   "Lax",

		// 5 per minute: 60s / 5 = 12s per token
		LoginRateLimit:          5,
		LoginRefillRate:         12 * time.Second,
		AccountLockoutThreshold: 10,
		AccountLockoutDuration:  30 * time.Minute,

		// 3 per minute: 60s / 3 = 20s per token
		PublicFormRateLimit:  3,
		PublicFormRefillRate: 20 * time.Second,

		MinPasswordLength:      8,
		MinResetPasswordLength: 6,

		RoleFetchAttempts: 3,
		RoleFetchBaseWait: time.Second,
	}
}
