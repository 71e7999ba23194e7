package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"

	"ragdash/internal/client"
	"ragdash/internal/clock"
	"ragdash/internal/config"
	"ragdash/internal/dashboard"
	"ragdash/internal/logging"
	"ragdash/internal/metrics"
	"ragdash/internal/poll"
	"ragdash/internal/query"
	"ragdash/internal/types"
)

const titleWidth = 48

// commandEnv is shared by every command that talks to the backend.
type commandEnv struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
	newContext func() (context.Context, context.CancelFunc)
	scheduler  clock.Scheduler
}

// backend is a dashboard opened for the lifetime of one command.
type backend struct {
	cfg    config.Config
	logger logging.Logger
	dash   *dashboard.Dashboard
	closed []func()
}

func (b *backend) Close() {
	for i := len(b.closed) - 1; i >= 0; i-- {
		b.closed[i]()
	}
}

// open loads the config and builds a dashboard over the HTTP client.
// Terminal notifications are printed to stdout. A non-empty metricsAddr
// serves /metrics until ctx ends.
func (e commandEnv) open(ctx context.Context, metricsAddr string) (*backend, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(e.stderr, logging.ParseLevel(cfg.LogLevel()))
	b := &backend{cfg: cfg, logger: logger}
	opts := dashboard.Options{
		Config:    cfg,
		Scheduler: e.scheduler,
		Logger:    logger,
		Notifier: dashboard.NotifierFunc(func(n dashboard.Notification) {
			printNotification(e.stdout, n)
		}),
	}
	if metricsAddr != "" {
		cache, rec, err := e.serveMetrics(ctx, cfg, logger, metricsAddr)
		if err != nil {
			return nil, err
		}
		opts.Cache = cache
		opts.Metrics = rec
		b.closed = append(b.closed, cache.Close)
	}
	b.dash = dashboard.New(e.newClient(cfg, logger), opts)
	b.closed = append(b.closed, b.dash.Close)
	return b, nil
}

// serveMetrics builds the cache up front so the recorder can export its
// stats, and serves the recorder in the background.
func (e commandEnv) serveMetrics(ctx context.Context, cfg config.Config, logger logging.Logger, addr string) (*query.Cache, *metrics.Recorder, error) {
	cache := query.New(e.scheduler, dashboard.CacheConfig(cfg, logger))
	rec, err := metrics.New(cache)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}
	go func() {
		if err := rec.Serve(ctx, addr, logger); err != nil {
			logger.Error("metrics_serve_failed", logging.F("addr", addr), logging.F("error", err))
		}
	}()
	return cache, rec, nil
}

// await blocks until the watcher settles or ctx is cancelled, then stops it.
func await[T any](ctx context.Context, session *poll.Session[T]) {
	defer session.Stop()
	select {
	case <-session.Done():
	case <-ctx.Done():
	}
}

func interrupted(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func printNotification(out io.Writer, n dashboard.Notification) {
	mark := "i"
	switch n.Level {
	case dashboard.LevelSuccess:
		mark = "✓"
	case dashboard.LevelError:
		mark = "✗"
	}
	fmt.Fprintf(out, "%s %s: %s\n", mark, n.Title, n.Message)
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
}

func printSessions(out io.Writer, sessions []types.Session) {
	writer := newTable(out)
	fmt.Fprintln(writer, "ID\tMESSAGES\tUPDATED\tTITLE")
	for _, s := range sessions {
		title := runewidth.Truncate(singleLine(s.Title()), titleWidth, "…")
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\n", s.SessionID, len(s.Messages), orDash(s.UpdatedAt), title)
	}
	_ = writer.Flush()
}

func printSession(out io.Writer, s *types.Session) {
	fmt.Fprintf(out, "session %s (%d messages)\n", s.SessionID, len(s.Messages))
	for _, msg := range s.Messages {
		header := string(msg.Role)
		if msg.Timestamp != "" {
			header += " · " + msg.Timestamp
		}
		fmt.Fprintf(out, "\n[%s]\n%s\n", header, strings.TrimSpace(msg.Content))
		if len(msg.Sources) > 0 {
			fmt.Fprintf(out, "sources: %s\n", strings.Join(msg.Sources, ", "))
		}
	}
}

func printFolders(out io.Writer, folders []types.AssetFolder) {
	writer := newTable(out)
	fmt.Fprintln(writer, "NAME\tFILES\tPATH")
	for _, f := range folders {
		count := "?"
		if f.FileCount != nil {
			count = fmt.Sprint(*f.FileCount)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", f.Name, count, f.Path)
	}
	_ = writer.Flush()
}

func printJobs(out io.Writer, jobs []types.TaskProgress) {
	writer := newTable(out)
	fmt.Fprintln(writer, "ID\tSTATUS\tPROGRESS\tERROR")
	for _, job := range jobs {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", job.JobID, job.Status.Label(), dashboard.FormatProgress(job), orDash(job.ErrorMessage))
	}
	_ = writer.Flush()
}

func printJob(out io.Writer, p *types.TaskProgress) {
	line := fmt.Sprintf("%s %s %s", p.JobID, p.Status.Label(), dashboard.FormatProgress(*p))
	if p.CurrentFile != "" && !p.Status.IsTerminal() {
		line += " current=" + p.CurrentFile
	}
	if p.ErrorMessage != "" {
		line += " error=" + p.ErrorMessage
	}
	fmt.Fprintln(out, line)
}

func printEvaluations(out io.Writer, evals []types.EvaluationStatusResponse) {
	writer := newTable(out)
	fmt.Fprintln(writer, "ID\tSTATUS\tFOLDER\tHIT RATE\tMRR\tCREATED")
	for _, e := range evals {
		row := dashboard.NewComparisonRow(e)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n", e.EvaluationID, e.Status.Label(), e.FolderPath, row.HitRate, row.MRR, orDash(e.CreatedAt))
	}
	_ = writer.Flush()
}

func printEvaluation(out io.Writer, e *types.EvaluationStatusResponse) {
	row := dashboard.NewComparisonRow(*e)
	line := fmt.Sprintf("%s %s folder=%s docs=%d hit_rate=%s mrr=%s avg=%s",
		e.EvaluationID, e.Status.Label(), e.FolderPath, e.NumDocumentsProcessed, row.HitRate, row.MRR, row.AvgScore)
	if e.ErrorMessage != "" {
		line += " error=" + e.ErrorMessage
	}
	fmt.Fprintln(out, line)
}

func printComparison(out io.Writer, rows []dashboard.ComparisonRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "no completed evaluations to compare")
		return
	}
	writer := newTable(out)
	fmt.Fprintln(writer, "ID\tFOLDER\tTOP K\tENHANCER\tRERANK\tHIT RATE\tMRR\tAVG SCORE\tQUESTIONS")
	for _, r := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.EvaluationID, r.FolderPath, r.TopK, r.Enhancer, r.Reranking, r.HitRate, r.MRR, r.AvgScore, r.Questions)
	}
	_ = writer.Flush()
}

func printRetrieval(out io.Writer, res *types.RetrievalResponse) {
	fmt.Fprintf(out, "%d results for %q\n", res.TotalRetrieved, res.Query)
	for i, doc := range res.Documents {
		fmt.Fprintf(out, "\n%d. %s (score %s)\n", i+1, doc.Source, dashboard.FormatScore(doc.Score))
		for _, line := range strings.Split(strings.TrimSpace(doc.Text), "\n") {
			fmt.Fprintf(out, "   %s\n", line)
		}
	}
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %s\n", label, client.Message(err))
	os.Exit(1)
}
