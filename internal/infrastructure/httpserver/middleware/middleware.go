package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/settings-store/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Logging  *LoggingMiddleware
	Metrics  *MetricsMiddleware
	Settings *SettingsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	settings ports.SettingsServiceFactory,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		Logging:  NewLoggingMiddleware(logger),
		Metrics:  NewMetricsMiddleware(requestsTotal, requestDuration),
		Settings: NewSettingsMiddleware(settings, logger),
	}
}
