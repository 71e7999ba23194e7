package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ragdash/internal/clock"
	"ragdash/internal/config"
	"ragdash/internal/logging"
	"ragdash/internal/store"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
	runUI      uiRunner
	openStore  func() (store.Repository, error)
	openLog    func(cfg config.Config) (logging.Logger, io.Closer, error)
	newContext func() (context.Context, context.CancelFunc)
	scheduler  clock.Scheduler
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newClient:  newHTTPClient,
		runUI:      runTerminalUI,
		openStore:  openStateStore,
		openLog:    openUILog,
		newContext: signalContext,
	}
}

func (w commandWiring) env() commandEnv {
	newContext := w.newContext
	if newContext == nil {
		newContext = signalContext
	}
	return commandEnv{
		stdout:     w.stdout,
		stderr:     w.stderr,
		loadConfig: w.loadConfig,
		newClient:  w.newClient,
		newContext: newContext,
		scheduler:  w.scheduler,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	env := wiring.env()
	return map[string]commandRunner{
		"chat":        NewChatCommand(env),
		"sessions":    NewSessionsCommand(env),
		"session":     NewSessionCommand(env),
		"retrieve":    NewRetrieveCommand(env),
		"folders":     NewFoldersCommand(env),
		"ingest":      NewIngestCommand(env),
		"jobs":        NewJobsCommand(env),
		"job":         NewJobCommand(env),
		"evaluate":    NewEvaluateCommand(env),
		"evaluations": NewEvaluationsCommand(env),
		"evaluation":  NewEvaluationCommand(env),
		"config":      NewConfigCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"ui":          NewUICommand(env, wiring.runUI, wiring.openStore, wiring.openLog),
	}
}

// signalContext is cancelled on the first interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
