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

type FoldersCommand struct {
	env commandEnv
}

func NewFoldersCommand(env commandEnv) *FoldersCommand {
	return &FoldersCommand{env: env}
}

func (c *FoldersCommand) Run(args []string) error {
	fs := flag.NewFlagSet("folders", flag.ContinueOnError)
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

	folders, err := b.dash.Folders(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, folders)
	}
	printFolders(c.env.stdout, folders)
	return nil
}

type IngestCommand struct {
	env commandEnv
}

func NewIngestCommand(env commandEnv) *IngestCommand {
	return &IngestCommand{env: env}
}

func (c *IngestCommand) Run(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	folder := fs.String("folder", "", "asset folder path (or first argument)")
	pdf := fs.Bool("pdf", true, "ingest pdf files")
	jsonFiles := fs.Bool("json", false, "ingest json files")
	pipeline := fs.String("pipeline", string(types.PipelineRecursiveOverlap), "chunking pipeline: recursive_overlap|semantic")
	watch := fs.Bool("watch", false, "follow the job until it completes")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form := dashboard.IngestionForm{
		FolderPath:  *folder,
		IncludePDF:  *pdf,
		IncludeJSON: *jsonFiles,
		Pipeline:    types.PipelineType(*pipeline),
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

	if folders, err := b.dash.Folders(ctx); err == nil {
		if warning := form.Warning(folders); warning != "" {
			fmt.Fprintf(c.env.stderr, "warning: %s\n", warning)
		}
	}
	resp, err := b.dash.StartJob.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.env.stdout, resp.JobID)
	if !*watch {
		return nil
	}
	return watchJob(ctx, b, c.env.stdout, c.env.stderr, resp.JobID)
}

type JobsCommand struct {
	env commandEnv
}

func NewJobsCommand(env commandEnv) *JobsCommand {
	return &JobsCommand{env: env}
}

func (c *JobsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	watch := fs.Bool("watch", false, "re-list jobs on the polling interval")
	asJSON := fs.Bool("json", false, "print JSON")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, *metricsAddr)
	if err != nil {
		return err
	}
	defer b.Close()

	show := func(jobs []types.TaskProgress) {
		if *asJSON {
			_ = writeJSON(c.env.stdout, jobs)
			return
		}
		printJobs(c.env.stdout, jobs)
	}
	if !*watch {
		jobs, err := b.dash.Jobs(ctx)
		if err != nil {
			return err
		}
		show(jobs)
		return nil
	}

	reads := 0
	session, err := b.dash.WatchJobs(ctx, dashboard.WatchOptions[[]types.TaskProgress]{
		OnUpdate: func(jobs []types.TaskProgress) {
			if reads > 0 {
				fmt.Fprintln(c.env.stdout)
			}
			reads++
			show(jobs)
		},
	})
	if err != nil {
		return err
	}
	await(ctx, session)
	return nil
}

type JobCommand struct {
	env commandEnv
}

func NewJobCommand(env commandEnv) *JobCommand {
	return &JobCommand{env: env}
}

func (c *JobCommand) Run(args []string) error {
	fs := flag.NewFlagSet("job", flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	watch := fs.Bool("watch", false, "follow the job until it completes")
	asJSON := fs.Bool("json", false, "print JSON")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("job requires a job id")
	}
	jobID := fs.Arg(0)

	ctx, cancel := c.env.newContext()
	defer cancel()
	b, err := c.env.open(ctx, *metricsAddr)
	if err != nil {
		return err
	}
	defer b.Close()

	if *watch {
		return watchJob(ctx, b, c.env.stdout, c.env.stderr, jobID)
	}
	progress, err := b.dash.JobStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.env.stdout, progress)
	}
	printJob(c.env.stdout, progress)
	return nil
}

// watchJob prints every status read until the job settles. A job that ends
// failed is reported as an error.
func watchJob(ctx context.Context, b *backend, stdout, stderr io.Writer, jobID string) error {
	session, err := b.dash.WatchJob(ctx, jobID, dashboard.WatchOptions[*types.TaskProgress]{
		OnUpdate: func(p *types.TaskProgress) {
			printJob(stdout, p)
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
	if last, ok := session.Last(); ok && last != nil && last.Status == types.IngestionStatusFailed {
		return fmt.Errorf("job %s failed", jobID)
	}
	return nil
}
