package main

import (
	"flag"
	"fmt"
	"io"

	"ragdash/internal/app"
	"ragdash/internal/config"
	"ragdash/internal/logging"
	"ragdash/internal/store"
)

type UICommand struct {
	env       commandEnv
	runUI     uiRunner
	openStore func() (store.Repository, error)
	openLog   func(cfg config.Config) (logging.Logger, io.Closer, error)
}

func NewUICommand(env commandEnv, runUI uiRunner, openStore func() (store.Repository, error), openLog func(cfg config.Config) (logging.Logger, io.Closer, error)) *UICommand {
	return &UICommand{
		env:       env,
		runUI:     runUI,
		openStore: openStore,
		openLog:   openLog,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	noState := fs.Bool("no-state", false, "do not restore or save selections")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.env.loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Nop()
	if c.openLog != nil {
		fileLogger, closer, err := c.openLog(cfg)
		if err != nil {
			fmt.Fprintf(c.env.stderr, "ui log disabled: %v\n", err)
		} else {
			defer closer.Close()
			logger = fileLogger
		}
	}

	opts := app.Options{
		Config:    cfg,
		Scheduler: c.env.scheduler,
		Logger:    logger,
	}
	if !*noState && c.openStore != nil {
		repo, err := c.openStore()
		if err != nil {
			logger.Warn("state_store_unavailable", logging.F("error", err))
		} else {
			defer repo.Close()
			opts.Store = repo.AppState()
		}
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	if *metricsAddr != "" {
		cache, rec, err := c.env.serveMetrics(ctx, cfg, logger, *metricsAddr)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Cache = cache
		opts.Metrics = rec
	}
	logger.Info("ui_start", logging.F("base_url", cfg.BaseURL()))
	return c.runUI(ctx, c.env.newClient(cfg, logger), opts)
}
