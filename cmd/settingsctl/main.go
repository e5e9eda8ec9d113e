package main

import (
	"fmt"
	"os"

	config "github.com/avatarctic/settings-store/configs"
	"github.com/avatarctic/settings-store/internal/bootstrap"
)

func main() {
	open := func(migrate bool) (*bootstrap.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger := bootstrap.NewLogger(cfg.Log)
		return bootstrap.Build(cfg, logger, bootstrap.Options{Migrate: migrate})
	}

	if err := newRootCmd(open, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
