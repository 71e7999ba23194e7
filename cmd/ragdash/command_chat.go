package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"ragdash/internal/dashboard"
)

type ChatCommand struct {
	env commandEnv
}

func NewChatCommand(env commandEnv) *ChatCommand {
	return &ChatCommand{env: env}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	sessionID := fs.String("session", "", "continue an existing session")
	asJSON := fs.Bool("json", false, "print the raw response")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := dashboard.ChatRequest(strings.Join(fs.Args(), " "), strings.TrimSpace(*sessionID))
	if err != nil {
		return err
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, "")
	if err != nil {
		return err
	}
	defer b.Close()

	resp, err := b.dash.SendMessage.Run(ctx, req)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, resp)
	}
	fmt.Fprintln(c.env.stdout, strings.TrimSpace(resp.Message))
	if len(resp.Sources) > 0 {
		fmt.Fprintf(c.env.stdout, "\nsources: %s\n", strings.Join(resp.Sources, ", "))
	}
	fmt.Fprintf(c.env.stdout, "\nsession: %s\n", resp.SessionID)
	return nil
}

type SessionsCommand struct {
	env commandEnv
}

func NewSessionsCommand(env commandEnv) *SessionsCommand {
	return &SessionsCommand{env: env}
}

func (c *SessionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, "")
	if err != nil {
		return err
	}
	defer b.Close()

	sessions, err := b.dash.Sessions(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, sessions)
	}
	printSessions(c.env.stdout, sessions)
	return nil
}

type SessionCommand struct {
	env commandEnv
}

func NewSessionCommand(env commandEnv) *SessionCommand {
	return &SessionCommand{env: env}
}

func (c *SessionCommand) Run(args []string) error {
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("session requires a session id")
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, "")
	if err != nil {
		return err
	}
	defer b.Close()

	session, err := b.dash.Session(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, session)
	}
	printSession(c.env.stdout, session)
	return nil
}
