// Package backend is the HTTP client for the visitor API.
//
// Every authenticated method takes the caller's bearer token explicitly; the
// token is read from the session at call time and never cached here. Calls
// pass through a circuit breaker, are traced with OpenTelemetry and are
// observed by an optional metrics Recorder.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

var (
	// ErrUnauthorized matches any 401 from the API. The portal ends the
	// session when it sees one.
	ErrUnauthorized = errors.New("backend: unauthorized")

	// ErrUnavailable wraps transport failures and an open circuit breaker.
	ErrUnavailable = errors.New("backend: unavailable")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Recorder observes completed backend calls. telemetry.Metrics satisfies it.
type Recorder interface {
	ObserveBackend(method, route string, status int, elapsed time.Duration)
}

// Client calls the visitor API.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	recorder Recorder

	roleAttempts int
	roleWait     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithRoleRetry sets how often GET /auth/roles is attempted and the first
// retry delay, which doubles after each failure.
func WithRoleRetry(attempts int, wait time.Duration) Option {
	return func(c *Client) {
		c.roleAttempts = attempts
		c.roleWait = wait
	}
}

// WithTimeout bounds every call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         defaultHTTPClient(),
		breaker:      NewCircuitBreaker("visitor-api"),
		roleAttempts: 3,
		roleWait:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: otelhttp.NewTransport(transport)}
}

// NewCircuitBreaker opens after 3 consecutive failures and tries again after
// 30 seconds. Only transport errors and 5xx responses count as failures; a 4xx
// is the API answering correctly.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[CRITICAL] Circuit Breaker %s: %s -> %s", name, from, to)
		},
	})
}

// call describes one request.
type call struct {
	method string
	route  string // metrics label with placeholders, e.g. "/requests/:id"
	path   string
	token  string
	body   interface{}
	out    interface{}
}

func (c *Client) do(ctx context.Context, req call) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req call) error {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.route, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.route, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.method, req.route, err)
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, start)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, req.method, req.route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: parseMessage(data, resp.StatusCode)}
	}

	if req.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, req.out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.route, err)
	}
	return nil
}

func (c *Client) observe(req call, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveBackend(req.method, req.route, status, time.Since(start))
	}
}

// parseMessage extracts the "message" field, which the API sends as a string
// or as a list of validation messages.
func parseMessage(data []byte, status int) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		var s string
		if json.Unmarshal(envelope.Message, &s) == nil && s != "" {
			return s
		}
		var list []string
		if json.Unmarshal(envelope.Message, &list) == nil && len(list) > 0 {
			return strings.Join(list, " ")
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return fmt.Sprintf("Request failed (%d %s).", status, http.StatusText(status))
}

// UserMessage turns err into text for a page banner.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrUnavailable):
		return "Could not reach the server. Please try again."
	default:
		return fallback
	}
}
