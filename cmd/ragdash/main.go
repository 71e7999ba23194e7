package main

import (
	"fmt"
	"os"
)

const usageText = `ragdash is a terminal dashboard for a document retrieval backend.

Usage:
  ragdash <command> [flags]

Commands:
  ui            run the terminal dashboard
  chat          send a chat message
  sessions      list chat sessions
  session       show one chat session
  retrieve      search indexed chunks
  folders       list asset folders
  ingest        start an ingestion job
  jobs          list ingestion jobs
  job           show one ingestion job
  evaluate      start a retrieval evaluation
  evaluations   list or compare evaluations
  evaluation    show one evaluation
  config        print configuration (effective or defaults)
  help          show help

Flags:
  -h, --help   show help

Watch flags (ingest, jobs, job, evaluate, evaluation):
  --watch              poll until the resource settles; ctrl+c stops
  --metrics-addr addr  serve prometheus metrics while running

Environment:
  RAGDASH_API_URL   backend base url (default http://localhost:8000)
  RAGDASH_HOME      data directory (default ~/.ragdash)

Examples:
  ragdash chat "what changed in the 2024 policy?"
  ragdash ingest --folder /data/policies --json --watch
  ragdash evaluate /data/policies --top-k 5 --rerank --watch
  ragdash evaluations --compare
  ragdash config --default --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
