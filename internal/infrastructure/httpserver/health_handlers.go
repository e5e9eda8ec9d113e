package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	serviceName    = "settings-store"
	serviceVersion = "1.0.0"

	healthCheckTimeout = 2 * time.Second
)

type healthReport struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck probes the store and cache. Any failing dependency degrades the
// report and turns the response into a 503 so load balancers stop routing here.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      serviceVersion,
		Service:      serviceName,
		Dependencies: make(map[string]string, len(s.healthCheckers)),
	}
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			report.Dependencies[hc.Name()] = "unhealthy"
			report.Status = "degraded"
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"dependency": hc.Name()}).WithError(err).Warn("health check failed")
			}
			continue
		}
		report.Dependencies[hc.Name()] = "healthy"
	}

	if report.Status != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}
