package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/settings-store/internal/core/ports"
)

type ctxKey string

const (
	keySettings ctxKey = "settings"
)

func SetSettings(c echo.Context, svc ports.SettingsService) { c.Set(string(keySettings), svc) }
func GetSettingsRaw(c echo.Context) (ports.SettingsService, bool) {
	v := c.Get(string(keySettings))
	svc, ok := v.(ports.SettingsService)
	return svc, ok
}
