package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/avatarctic/settings-store/internal/infrastructure/httpserver/helpers"
)

// SettingsMiddleware gives every request its own SettingsService so that the
// read memo lives exactly as long as the request.
type SettingsMiddleware struct {
	factory ports.SettingsServiceFactory
	logger  *logrus.Logger
}

func NewSettingsMiddleware(factory ports.SettingsServiceFactory, logger *logrus.Logger) *SettingsMiddleware {
	return &SettingsMiddleware{factory: factory, logger: logger}
}

func (m *SettingsMiddleware) AttachSettings() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.factory != nil {
				helpers.SetSettings(c, m.factory.New())
			} else if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"path": c.Path()}).Warn("no settings factory configured")
			}
			return next(c)
		}
	}
}
