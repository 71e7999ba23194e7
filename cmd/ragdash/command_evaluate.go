package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"ragdash/internal/dashboard"
	"ragdash/internal/types"
)

type EvaluateCommand struct {
	env commandEnv
}

func NewEvaluateCommand(env commandEnv) *EvaluateCommand {
	return &EvaluateCommand{env: env}
}

func (c *EvaluateCommand) Run(args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	folder := fs.String("folder", "", "asset folder path (or first argument)")
	topK := fs.Int("top-k", dashboard.DefaultTopK, "chunks retrieved per question (1-50)")
	questions := fs.Int("questions", dashboard.MinQuestionsPerDoc, "questions generated per document (1-10)")
	enhancer := fs.Bool("enhancer", false, "rewrite questions before searching")
	rerank := fs.Bool("rerank", false, "rerank retrieved chunks")
	reuse := fs.String("reuse", "", "reuse the questions of an earlier evaluation")
	watch := fs.Bool("watch", false, "follow the evaluation until it completes")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form := dashboard.EvaluationForm{
		FolderPath:         *folder,
		TopK:               *topK,
		UseQueryEnhancer:   *enhancer,
		UseReranking:       *rerank,
		QuestionsPerDoc:    *questions,
		SourceEvaluationID: *reuse,
	}
	if strings.TrimSpace(form.FolderPath) == "" && fs.NArg() > 0 {
		form.FolderPath = fs.Arg(0)
	}
	req, err := form.Request()
	if err != nil {
		return err
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, *metricsAddr)
	if err != nil {
		return err
	}
	defer b.Close()

	resp, err := b.dash.StartEvaluation.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.env.stdout, resp.EvaluationID)
	if !*watch {
		return nil
	}
	return watchEvaluation(ctx, b, c.env.stdout, c.env.stderr, resp.EvaluationID)
}

type EvaluationsCommand struct {
	env commandEnv
}

func NewEvaluationsCommand(env commandEnv) *EvaluationsCommand {
	return &EvaluationsCommand{env: env}
}

func (c *EvaluationsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("evaluations", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	compare := fs.Bool("compare", false, "compare completed evaluations (optionally only the given ids)")
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

	evals, err := b.dash.Evaluations(ctx)
	if err != nil {
		return err
	}
	if *compare {
		rows := dashboard.CompareEvaluations(evals, fs.Args())
		if *asJSON {
			return writeJSON(c.env.stdout, rows)
		}
		printComparison(c.env.stdout, rows)
		return nil
	}
	if *asJSON {
		return writeJSON(c.env.stdout, evals)
	}
	printEvaluations(c.env.stdout, evals)
	return nil
}

type EvaluationCommand struct {
	env commandEnv
}

func NewEvaluationCommand(env commandEnv) *EvaluationCommand {
	return &EvaluationCommand{env: env}
}

func (c *EvaluationCommand) Run(args []string) error {
	fs := flag.NewFlagSet("evaluation", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	watch := fs.Bool("watch", false, "follow the evaluation until it completes")
	asJSON := fs.Bool("json", false, "print JSON")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("evaluation requires an evaluation id")
	}
	id := fs.Arg(0)

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, *metricsAddr)
	if err != nil {
		return err
	}
	defer b.Close()

	if *watch {
		return watchEvaluation(ctx, b, c.env.stdout, c.env.stderr, id)
	}
	evaluation, err := b.dash.Evaluation(ctx, id)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, evaluation)
	}
	printEvaluation(c.env.stdout, evaluation)
	return nil
}

func watchEvaluation(ctx context.Context, b *backend, stdout, stderr io.Writer, id string) error {
	session, err := b.dash.WatchEvaluation(ctx, id, dashboard.WatchOptions[*types.EvaluationStatusResponse]{
		OnUpdate: func(e *types.EvaluationStatusResponse) {
			printEvaluation(stdout, e)
		},
	})
	if err != nil {
		return err
	}
	await(ctx, session)
	if interrupted(ctx) {
		fmt.Fprintln(stderr, "watch stopped")
		return nil
	}
	if last, ok := session.Last(); ok && last != nil && last.Status == types.EvaluationStatusFailed {
		return fmt.Errorf("evaluation %s failed", id)
	}
	return nil
}
