package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/settings-store/internal/application/services"
	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/avatarctic/settings-store/internal/infrastructure/httpserver"
	"github.com/avatarctic/settings-store/test/mocks"
)

type testEnv struct {
	ts    *httptest.Server
	repo  *mocks.SettingRepositoryMock
	cats  *mocks.CategoryRepositoryMock
	cache *mocks.CacheMock
}

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                    { return c.name }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

func newTestEnv(t *testing.T, checkers ...ports.HealthChecker) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:  mocks.NewSettingRepositoryMock(),
		cats:  mocks.NewCategoryRepositoryMock(),
		cache: mocks.NewCacheMock(),
	}
	env.cats.OnDelete = env.repo.Detach

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	factory := services.NewSettingsServiceFactory(services.SettingsDeps{
		Settings:   env.repo,
		Categories: env.cats,
		Cache:      env.cache,
		Locales:    mocks.StaticLocales{"en", "de"},
		Logger:     logger,
	})
	srv := httpserver.NewServer(&httpserver.ServerConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}, logger, httpserver.ServerDeps{
		Settings:       factory,
		Admin:          services.NewSettingsAdminService(env.repo, env.cats, factory, logger),
		HealthCheckers: checkers,
	})

	env.ts = httptest.NewServer(srv.Echo())
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func TestGetSetting_AutoCreatesFromQuery(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/settings/page_size?type=int&default=25&comment=Rows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "page_size", body["name"])
	assert.Equal(t, float64(25), body["value"])

	all := env.repo.All()
	require.Len(t, all, 1)
	assert.Equal(t, setting.TypeInteger, all[0].Type)
	assert.Equal(t, "Rows", all[0].Comment)
}

func TestGetSetting_Localized(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/settings/title?lang=DE&default=Hallo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hallo", body["value"])

	all := env.repo.All()
	require.Len(t, all, 2, "a localized read creates every configured locale")
	assert.Equal(t, "title_de", all[0].Name)
	assert.Equal(t, "title_en", all[1].Name)
}

func TestGetSetting_BadType(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/settings/x?type=blob", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.repo.All())
}

func TestGetSetting_StoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	env.repo.FindByNameFn = func(ctx context.Context, name string) (*setting.Setting, bool, error) {
		return nil, false, errors.New("connection refused")
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/settings/x", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal error", body["message"])
}

func TestCreateSetting(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{
		"name": "smtp_port", "type": "int", "value": 25, "category": "mail",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created, ok := body["settings"].([]any)
	require.True(t, ok)
	require.Len(t, created, 1)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{
		"name": "smtp_port", "type": "int", "value": 26, "category": "mail",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{"name": "n", "type": "int", "value": "abc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{"type": "string"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSetting_DefaultsToString(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{"name": "motd", "value": "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, env.repo.All(), 1)
	assert.Equal(t, setting.TypeString, env.repo.All()[0].Type)
}

func TestCreateSetting_MultiLanguage(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{
		"name": "greeting", "value": "hello", "multi_language": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, body["settings"], 2)

	all := env.repo.All()
	require.Len(t, all, 2)
	assert.Equal(t, "greeting_de", all[0].Name)
	assert.Equal(t, "greeting_en", all[1].Name)
}

func TestUpdateSetting(t *testing.T) {
	env := newTestEnv(t)
	env.repo.Seed(&setting.Setting{Name: "limit", Type: setting.TypeInteger, Value: int64(10)})
	env.cache.Put("settings_limit", []byte(`{"type":"int","value":"10"}`))

	resp, _ := env.do(t, http.MethodPut, "/api/v1/settings/limit", map[string]any{"value": 30})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(30), env.repo.All()[0].Value)

	resp, body := env.do(t, http.MethodGet, "/api/v1/settings/limit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(30), body["value"])

	resp, _ = env.do(t, http.MethodPut, "/api/v1/settings/limit", map[string]any{"value": "many"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/v1/settings/ghost", map[string]any{"value": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateSetting_LargeIntegers(t *testing.T) {
	env := newTestEnv(t)
	env.repo.Seed(&setting.Setting{Name: "quota", Type: setting.TypeInteger, Value: int64(10)})

	resp, _ := env.do(t, http.MethodPut, "/api/v1/settings/quota", map[string]any{"value": int64(9007199254740993)})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(9007199254740993), env.repo.All()[0].Value)

	resp, _ = env.do(t, http.MethodPut, "/api/v1/settings/quota", map[string]any{"value": 1e19})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int64(9007199254740993), env.repo.All()[0].Value)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{
		"name": "huge", "type": "int", "value": -1e19,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, env.repo.All(), 1)
}

func TestGroupEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/groups", map[string]any{"name": "mail", "comment": "Outgoing mail"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "mail", body["name"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/settings", map[string]any{
		"name": "host", "value": "smtp.local", "category": "mail",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/groups/mail", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mail", body["category"])
	assert.Equal(t, map[string]any{"host": "smtp.local"}, body["settings"])
	assert.True(t, env.cache.Has("settings_category_mail"))

	resp, _ = env.do(t, http.MethodPut, "/api/v1/groups/mail/settings/host", map[string]any{"value": "mx.local"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, env.cache.Has("settings_category_mail"))

	resp, body = env.do(t, http.MethodGet, "/api/v1/groups/mail", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"host": "mx.local"}, body["settings"])

	resp, body = env.do(t, http.MethodDelete, "/api/v1/groups/mail/cache", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cleared"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/groups", map[string]any{"comment": "nameless"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearSettingCache(t *testing.T) {
	env := newTestEnv(t)
	env.cache.Put("settings_motd", []byte(`{"type":"string","value":"hi"}`))

	resp, body := env.do(t, http.MethodDelete, "/api/v1/settings/motd/cache", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cleared"])
	assert.False(t, env.cache.Has("settings_motd"))

	env.cache.DeleteErr = errors.New("redis down")
	resp, body = env.do(t, http.MethodDelete, "/api/v1/settings/motd/cache", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["cleared"])
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ui := env.cats.Seed("ui")
	color := env.repo.Seed(&setting.Setting{Name: "color", Type: setting.TypeString, Value: "red", Category: ui})
	env.repo.Seed(&setting.Setting{Name: "logo", Type: setting.TypeString, Value: "a.png"})

	resp, body := env.do(t, http.MethodGet, "/api/v1/admin/settings?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(1), body["limit"])
	assert.Len(t, body["settings"], 1)

	resp, body = env.do(t, http.MethodGet, "/api/v1/admin/settings/"+color.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "red", body["value"])

	resp, _ = env.do(t, http.MethodGet, "/api/v1/admin/settings/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/admin/settings/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.cache.Put("settings_color", []byte(`{"type":"string","value":"red"}`))
	resp, body = env.do(t, http.MethodPut, "/api/v1/admin/settings/"+color.ID.String(), map[string]any{"value": "blue"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "blue", body["value"])
	assert.False(t, env.cache.Has("settings_color"))

	resp, body = env.do(t, http.MethodGet, "/api/v1/admin/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["categories"], 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/admin/categories/"+ui.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	for _, s := range env.repo.All() {
		assert.Nil(t, s.Category)
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/admin/settings/"+color.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, env.repo.All(), 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/admin/settings/"+color.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, stubChecker{name: "database"})
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "settings-store", body["service"])

	env = newTestEnv(t, stubChecker{name: "database"}, stubChecker{name: "redis", err: errors.New("down")})
	resp, body = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": "healthy", "redis": "unhealthy"}, body["dependencies"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/settings/x", nil)
	env.do(t, http.MethodGet, "/api/v1/settings/y?type=blob", nil)

	resp, err := http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `settings_store_http_requests_total{code="200",method="GET",route="/api/v1/settings/:name"}`)
	assert.Contains(t, string(raw), `settings_store_http_requests_total{code="400",method="GET",route="/api/v1/settings/:name"}`)
	assert.Contains(t, string(raw), "settings_store_http_request_duration_seconds_bucket")
	assert.NotContains(t, string(raw), "/api/v1/settings/x\"")
}
