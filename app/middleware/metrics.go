// Package middleware holds Fiber middleware shared by the capture and dashboard apps
package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by app, method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"app", "method", "route", "status"},
	)

	// Request duration in seconds partitioned by app, method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"app", "method", "route", "status"},
	)

	// In-flight HTTP requests per app
	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
		[]string{"app"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics for app.
// Unmatched paths are collapsed into one label so scanners cannot blow up cardinality.
func Metrics(app string) fiber.Handler {
	inflight := httpInFlight.WithLabelValues(app)
	return func(c fiber.Ctx) error {
		start := time.Now()
		inflight.Inc()
		defer inflight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		if status == fiber.StatusNotFound {
			route = "unmatched"
		}

		labels := prometheus.Labels{
			"app":    app,
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}
