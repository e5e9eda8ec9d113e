package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Start serves the settings API until Shutdown, over TLS when a certificate
// pair is configured. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	tls := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
	s.logger.WithFields(logrus.Fields{"addr": addr, "tls": tls}).Info("starting settings API")

	var err error
	if tls {
		err = s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		s.logger.Warn("TLS certificates not configured; serving plain HTTP")
		err = s.echo.StartServer(&http.Server{
			Addr:         addr,
			ReadTimeout:  s.config.ReadTimeout,
			WriteTimeout: s.config.WriteTimeout,
			IdleTimeout:  s.config.IdleTimeout,
		})
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for in-process tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
