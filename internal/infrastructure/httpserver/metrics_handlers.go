package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "settings_store"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Settings API requests by method, route template and status code",
		},
		[]string{"method", "route", "code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Settings API latency by method and route template",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

// GetRequestsTotal returns the request counter shared by the metrics middleware.
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the latency histogram shared by the metrics middleware.
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// LogMetricsInitialization logs the exported metric families.
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"settings_store_http_requests_total":           "API requests by method, route, code",
			"settings_store_http_request_duration_seconds": "API latency by method, route",
			"settings_lookups_total":                       "settings reads by scope and serving tier",
			"settings_cache_invalidations_total":           "shared cache deletions by scope and outcome",
			"metrics_endpoint":                             "/metrics",
		}).Debug("Prometheus metrics registered")
	}
}

// metricsEndpoint serves the default registry.
func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
