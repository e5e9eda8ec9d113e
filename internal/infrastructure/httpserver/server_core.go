package httpserver

import (
	"time"

	"github.com/avatarctic/settings-store/internal/core/ports"
	customMiddleware "github.com/avatarctic/settings-store/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
}

type ServerDeps struct {
	Settings       ports.SettingsServiceFactory
	Admin          ports.SettingsAdminService
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	adminSvc       ports.SettingsAdminService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = numberJSONSerializer{}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		adminSvc:       deps.Admin,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.Settings,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
