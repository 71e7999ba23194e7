package main

import (
	"context"
	"io"

	"ragdash/internal/app"
	"ragdash/internal/client"
	"ragdash/internal/config"
	"ragdash/internal/dashboard"
	"ragdash/internal/logging"
	"ragdash/internal/store"
)

type clientFactory func(cfg config.Config, logger logging.Logger) dashboard.API

type uiRunner func(ctx context.Context, api dashboard.API, opts app.Options) error

func newHTTPClient(cfg config.Config, logger logging.Logger) dashboard.API {
	return client.New(cfg, logger)
}

func runTerminalUI(ctx context.Context, api dashboard.API, opts app.Options) error {
	return app.Run(ctx, api, opts)
}

func openStateStore() (store.Repository, error) {
	path, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	return store.NewBboltRepository(path)
}

// openUILog sends logs to the data dir while the terminal is owned by the
// UI.
func openUILog(cfg config.Config) (logging.Logger, io.Closer, error) {
	path, err := config.LogPath()
	if err != nil {
		return nil, nil, err
	}
	return logging.NewFile(path, logging.ParseLevel(cfg.LogLevel()))
}
