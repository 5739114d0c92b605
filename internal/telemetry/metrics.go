package telemetry

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's Prometheus collectors. It satisfies
// backend.Recorder so API calls are counted alongside page requests.
type Metrics struct {
	registry *prometheus.Registry

	pageRequests *prometheus.CounterVec
	pageLatency  *prometheus.HistogramVec

	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
}

// NewMetrics registers every collector on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Portal page requests by route, method and status.",
		}, []string{"method", "route", "status"}),
		pageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Portal page latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Visitor API calls by endpoint, method and status. Status 0 is a transport failure.",
		}, []string{"method", "route", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_backend_request_duration_seconds",
			Help:    "Visitor API latency by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pageRequests, m.pageLatency,
		m.backendRequests, m.backendLatency,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBackend records one visitor API call.
func (m *Metrics) ObserveBackend(method, route string, status int, elapsed time.Duration) {
	m.backendRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.backendLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Middleware counts every page request. Routes are labelled with their
// registered pattern so ids do not explode label cardinality.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		m.pageRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.pageLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
