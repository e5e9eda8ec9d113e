package helpers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/settings-store/internal/core/ports"
)

// GetSettingsFromContext returns the request-scoped settings service attached by the settings middleware.
func GetSettingsFromContext(c echo.Context) (ports.SettingsService, error) {
	svc, ok := GetSettingsRaw(c)
	if !ok || svc == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "settings service not available")
	}
	return svc, nil
}

// GetPagination reads limit and offset query parameters, keeping the defaults on bad input.
func GetPagination(c echo.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
