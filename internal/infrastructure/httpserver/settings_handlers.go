package httpserver

import (
	"net/http"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/avatarctic/settings-store/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
)

// getSetting reads a setting; type, default, comment and lang query
// parameters seed it when it has to be created.
func (s *Server) getSetting(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	var opts []ports.GetOption
	if t := c.QueryParam("type"); t != "" {
		vt, err := setting.ParseValueType(t)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		opts = append(opts, ports.WithType(vt))
	}
	if c.QueryParams().Has("default") {
		opts = append(opts, ports.WithDefault(c.QueryParam("default")))
	}
	if comment := c.QueryParam("comment"); comment != "" {
		opts = append(opts, ports.WithComment(comment))
	}
	if lang := c.QueryParam("lang"); lang != "" {
		opts = append(opts, ports.WithLang(lang))
	}

	name := c.Param("name")
	value, err := svc.Get(c.Request().Context(), name, opts...)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"name": name, "value": value})
}

func (s *Server) createSetting(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	var req setting.CreateSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Type == "" {
		req.Type = setting.TypeString
	}
	created, err := svc.Create(c.Request().Context(), &req)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"settings": created})
}

func (s *Server) updateSetting(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	var req setting.UpdateValueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := svc.UpdateValue(c.Request().Context(), c.Param("name"), req.Value); err != nil {
		return s.toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearSettingCache(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	cleared := svc.ClearCache(c.Request().Context(), c.Param("name"))
	return c.JSON(http.StatusOK, map[string]interface{}{"cleared": cleared})
}

func (s *Server) createGroup(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	var req setting.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	category, err := svc.CreateGroup(c.Request().Context(), &req)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (s *Server) getGroup(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	name := c.Param("name")
	values, err := svc.Group(c.Request().Context(), name)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"category": name, "settings": values})
}

func (s *Server) updateGroupedSetting(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	var req setting.UpdateValueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := svc.UpdateGroupedValue(c.Request().Context(), c.Param("group"), c.Param("name"), req.Value); err != nil {
		return s.toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearGroupCache(c echo.Context) error {
	svc, err := helpers.GetSettingsFromContext(c)
	if err != nil {
		return err
	}
	cleared := svc.ClearGroupCache(c.Request().Context(), c.Param("name"))
	return c.JSON(http.StatusOK, map[string]interface{}{"cleared": cleared})
}
