// Package security provides structured logging for the portal.
// Every line is a single JSON object so log shippers can index events
// without parsing free text.
package security

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel string

// Log levels in increasing severity. SECURITY marks audit events.
const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARN"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
	LogLevelSecurity LogLevel = "SECURITY"
)

// SecurityEventType names an auditable event.
type SecurityEventType string

// Auditable events raised by the portal.
const (
	EventLoginSuccess        SecurityEventType = "login_success"
	EventLoginFailure        SecurityEventType = "login_failure"
	EventLogout              SecurityEventType = "logout"
	EventAccountLocked       SecurityEventType = "account_locked"
	EventUnauthorizedAccess  SecurityEventType = "unauthorized_access"
	EventSessionExpired      SecurityEventType = "session_expired"
	EventBackendUnauthorized SecurityEventType = "backend_unauthorized"
	EventRateLimitExceeded   SecurityEventType = "rate_limit_exceeded"
	EventCSRFViolation       SecurityEventType = "csrf_violation"
	EventPasswordReset       SecurityEventType = "password_reset"
	EventAccountCreate       SecurityEventType = "account_create"
	EventCEORegister         SecurityEventType = "ceo_register"
	EventRolePermissions     SecurityEventType = "role_permissions_change"
	EventTierChange          SecurityEventType = "integrity_tier_change"
)

// LogEntry is the JSON document written for each log call.
type LogEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Message    string                 `json:"message"`
	EventType  SecurityEventType      `json:"event_type,omitempty"`
	ActorID    string                 `json:"actor_id,omitempty"`
	ActorEmail string                 `json:"actor_email,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Method     string                 `json:"method,omitempty"`
	Path       string                 `json:"path,omitempty"`
	Status     int                    `json:"status,omitempty"`
	LatencyMS  int64                  `json:"latency_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Logger writes LogEntry values as JSON lines.
// It is safe for concurrent use because log.Logger serializes writes.
type Logger struct {
	output *log.Logger
}

// NewLogger returns a Logger writing to stdout.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo returns a Logger writing to w.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{output: log.New(w, "", 0)}
}

func (l *Logger) write(entry LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.output.Printf(`{"level":"ERROR","message":"log marshal failed: %s"}`, err)
		return
	}
	l.output.Println(string(data))
}

// Info logs an informational message.
func (l *Logger) Info(message string) {
	l.write(LogEntry{Level: LogLevelInfo, Message: message})
}

// Warn logs a recoverable problem.
func (l *Logger) Warn(message string) {
	l.write(LogEntry{Level: LogLevelWarning, Message: message})
}

// Error logs a failure with its cause. err may be nil.
func (l *Logger) Error(message string, err error) {
	entry := LogEntry{Level: LogLevelError, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// Critical logs a failure that prevents the portal from serving requests.
func (l *Logger) Critical(message string, err error) {
	entry := LogEntry{Level: LogLevelCritical, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// SecurityEvent logs an auditable event.
//
// Parameters:
//   - event: Event type
//   - actorID: Backend user id of the actor, empty when unknown
//   - actorEmail: Email of the actor, empty when unknown
//   - ipAddress: Client address
//   - userAgent: Client user agent
//   - extra: Event specific fields, may be nil
func (l *Logger) SecurityEvent(event SecurityEventType, actorID, actorEmail, ipAddress, userAgent string, extra map[string]interface{}) {
	l.write(LogEntry{
		Level:      LogLevelSecurity,
		Message:    fmt.Sprintf("security event: %s", event),
		EventType:  event,
		ActorID:    actorID,
		ActorEmail: actorEmail,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Extra:      extra,
	})
}

// HTTPRequest logs one served request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMS int64, ipAddress, userAgent string) {
	l.write(LogEntry{
		Level:     LogLevelInfo,
		Message:   fmt.Sprintf("%s %s %d %dms", method, path, status, latencyMS),
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMS: latencyMS,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}
