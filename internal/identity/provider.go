// Package identity keeps the signed-in user in the server-side session.
//
// A single Provider is created at start-up and injected into every handler
// and middleware that needs the current user. Nothing else reads or writes
// the identity keys of the session.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/golang-jwt/jwt/v5"
)

// Session keys.
const (
	keyToken     = "token"
	keyUser      = "user"
	keyFlashKind = "flash_kind"
	keyFlashText = "flash_text"
)

// EventSessionEnded is sent to the other pages of a session when it ends.
const EventSessionEnded = "session_ended"

// Notifier is told when a session ends so its other open pages can react.
type Notifier interface {
	Notify(sessionID, event string)
}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the page after a redirect.
type Flash struct {
	Kind string
	Text string
}

// Provider loads, stores and clears the Identity of a request's session.
type Provider struct {
	store    *session.Store
	notifier Notifier
	now      func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithNotifier sets who is told about ended sessions.
func WithNotifier(n Notifier) Option {
	return func(p *Provider) { p.notifier = n }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a Provider over store.
func NewProvider(store *session.Store, opts ...Option) *Provider {
	p := &Provider{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the underlying session store.
func (p *Provider) Store() *session.Store {
	return p.store
}

// Current returns the signed-in identity, or nil when there is none.
//
// A session whose access token is a JWT with an exp claim in the past is
// treated as absent and destroyed. Tokens that are not JWTs are accepted
// as they are; the backend remains the authority on them.
func (p *Provider) Current(c *fiber.Ctx) (*models.Identity, error) {
	sess, err := p.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	token, _ := sess.Get(keyToken).(string)
	raw, _ := sess.Get(keyUser).(string)
	if token == "" || raw == "" {
		return nil, nil
	}

	if p.expired(token) {
		if err := sess.Destroy(); err != nil {
			return nil, fmt.Errorf("destroy expired session: %w", err)
		}
		return nil, nil
	}

	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		// Unreadable identities are dropped rather than surfaced.
		_ = sess.Destroy()
		return nil, nil
	}
	id.AccessToken = token
	return &id, nil
}

// Expired reports whether the request carries a session that Current would
// reject for an expired token. Used to log session expiry once.
func (p *Provider) Expired(c *fiber.Ctx) bool {
	sess, err := p.store.Get(c)
	if err != nil {
		return false
	}
	token, _ := sess.Get(keyToken).(string)
	return token != "" && p.expired(token)
}

func (p *Provider) expired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(p.now())
}

// SetUser starts a new session for id. The session id is regenerated so a
// pre-login cookie never becomes an authenticated one.
func (p *Provider) SetUser(c *fiber.Ctx, id *models.Identity) error {
	if id == nil || id.AccessToken == "" {
		return errors.New("identity: missing access token")
	}

	sess, err := p.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	if err := put(sess, id); err != nil {
		return err
	}
	return sess.Save()
}

// UpdateUser replaces the stored identity without touching the session id,
// e.g. after a profile edit renames the user.
func (p *Provider) UpdateUser(c *fiber.Ctx, id *models.Identity) error {
	sess, err := p.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := put(sess, id); err != nil {
		return err
	}
	return sess.Save()
}

func put(sess *session.Session, id *models.Identity) error {
	stored := *id
	stored.AccessToken = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	sess.Set(keyToken, id.AccessToken)
	sess.Set(keyUser, string(data))
	return nil
}

// Logout destroys the session and tells its other pages.
func (p *Provider) Logout(c *fiber.Ctx) error {
	sess, err := p.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sid := sess.ID()
	fresh := sess.Fresh()

	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	if p.notifier != nil && !fresh {
		p.notifier.Notify(sid, EventSessionEnded)
	}
	return nil
}

// SessionID returns the id of the request's existing session, or "" when the
// request carries none.
func (p *Provider) SessionID(c *fiber.Ctx) string {
	sess, err := p.store.Get(c)
	if err != nil || sess.Fresh() {
		return ""
	}
	return sess.ID()
}

// Flash stores a message for the next page render.
func (p *Provider) Flash(c *fiber.Ctx, kind, text string) error {
	sess, err := p.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.Set(keyFlashKind, kind)
	sess.Set(keyFlashText, text)
	return sess.Save()
}

// TakeFlash returns and clears the pending message, if any.
func (p *Provider) TakeFlash(c *fiber.Ctx) *Flash {
	sess, err := p.store.Get(c)
	if err != nil {
		return nil
	}
	text, _ := sess.Get(keyFlashText).(string)
	if text == "" {
		return nil
	}
	kind, _ := sess.Get(keyFlashKind).(string)
	sess.Delete(keyFlashKind)
	sess.Delete(keyFlashText)
	if err := sess.Save(); err != nil {
		return nil
	}
	return &Flash{Kind: kind, Text: text}
}
