package httpserver

import (
	"net/http"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/infrastructure/httpserver/helpers"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) listSettings(c echo.Context) error {
	limit, offset := helpers.GetPagination(c, 50)
	list, total, err := s.adminSvc.ListSettings(c.Request().Context(), limit, offset)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"settings": list, "total": total, "limit": limit, "offset": offset})
}

func (s *Server) getSettingByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid setting ID")
	}
	st, err := s.adminSvc.GetSetting(c.Request().Context(), id)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) saveSetting(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid setting ID")
	}
	var req setting.SaveSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	st, err := s.adminSvc.SaveSetting(c.Request().Context(), id, &req)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) deleteSetting(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid setting ID")
	}
	if err := s.adminSvc.DeleteSetting(c.Request().Context(), id); err != nil {
		return s.toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listCategories(c echo.Context) error {
	categories, err := s.adminSvc.ListCategories(c.Request().Context())
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) deleteCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category ID")
	}
	if err := s.adminSvc.DeleteCategory(c.Request().Context(), id); err != nil {
		return s.toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
