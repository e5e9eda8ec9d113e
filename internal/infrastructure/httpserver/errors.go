package httpserver

import (
	"errors"
	"net/http"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// toHTTPError maps domain errors onto status codes. Anything unrecognized is
// logged and reported as a 500 without leaking details.
func (s *Server) toHTTPError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, setting.ErrInvalidType), errors.Is(err, setting.ErrInvalidValue):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, setting.ErrSettingNotFound), errors.Is(err, setting.ErrCategoryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, setting.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"method": c.Request().Method, "path": c.Path()}).WithError(err).Error("settings request failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
