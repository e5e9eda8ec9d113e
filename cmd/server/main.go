package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avatarctic/settings-store/configs"
	"github.com/avatarctic/settings-store/internal/bootstrap"
	"github.com/avatarctic/settings-store/internal/infrastructure/httpserver"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := bootstrap.NewLogger(cfg.Log)
	logger.Info("Starting settings store...")

	app, err := bootstrap.Build(cfg, logger, bootstrap.Options{
		Registerer: prometheus.DefaultRegisterer,
		Migrate:    true,
	})
	if err != nil {
		logger.Fatal("Failed to initialize settings stack:", err)
	}
	defer app.Close()

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		Settings:       app.Settings,
		Admin:          app.Admin,
		HealthCheckers: app.HealthCheckers,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
