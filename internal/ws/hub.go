// Package ws pushes session events to every open page of a session.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// localSessionID carries the session id from the upgrade check to the socket.
const localSessionID = "ws_session_id"

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SessionIDFunc returns the id of the request's existing session, or "".
type SessionIDFunc func(c *fiber.Ctx) string

// Event is the JSON frame sent to pages.
type Event struct {
	Type string `json:"type"`
}

// Hub tracks open connections grouped by session id.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[string]Conn
	logger   *security.Logger
}

// NewHub creates an empty hub. logger may be nil.
func NewHub(logger *security.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[string]Conn),
		logger:   logger,
	}
}

// Register adds conn under sessionID and returns its connection id.
func (h *Hub) Register(sessionID string, conn Conn) string {
	id := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.sessions[sessionID]
	if !ok {
		conns = make(map[string]Conn)
		h.sessions[sessionID] = conns
	}
	conns[id] = conn
	return id
}

// Unregister removes one connection and closes it.
func (h *Hub) Unregister(sessionID, connID string) {
	h.mu.Lock()
	conn, ok := h.sessions[sessionID][connID]
	if ok {
		delete(h.sessions[sessionID], connID)
		if len(h.sessions[sessionID]) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

// Count returns the number of open connections of a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

// Notify sends event to every connection of sessionID. Connections that
// fail to take the write are dropped.
func (h *Hub) Notify(sessionID, event string) {
	msg, err := json.Marshal(Event{Type: event})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.sessions[sessionID] {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			if h.logger != nil {
				h.logger.Warn("websocket write failed: " + err.Error())
			}
			_ = conn.Close()
			delete(h.sessions[sessionID], id)
		}
	}
	if len(h.sessions[sessionID]) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Upgrade admits websocket upgrades from requests that carry a session.
// Anything else gets 426 or 401.
func Upgrade(sessionID SessionIDFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		sid := sessionID(c)
		if sid == "" {
			return fiber.ErrUnauthorized
		}
		c.Locals(localSessionID, sid)
		return c.Next()
	}
}

// Handler serves the socket. Incoming frames are read and discarded so
// close frames are noticed.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sid, _ := c.Locals(localSessionID).(string)
		if sid == "" {
			_ = c.Close()
			return
		}

		id := h.Register(sid, c)
		defer h.Unregister(sid, id)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
}
