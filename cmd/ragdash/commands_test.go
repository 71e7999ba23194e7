package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ragdash/internal/app"
	"ragdash/internal/client"
	"ragdash/internal/config"
	"ragdash/internal/dashboard"
	"ragdash/internal/logging"
	"ragdash/internal/store"
	"ragdash/internal/types"
)

func TestChatCommandStartsNewSession(t *testing.T) {
	fake := &fakeAPI{
		chatResp: &types.ChatResponse{Message: "The policy changed in March.", SessionID: "s1", Sources: []string{"policy.pdf"}},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewChatCommand(env).Run([]string{"what", "changed?"}); err != nil {
		t.Fatalf("expected chat to succeed, got err=%v", err)
	}
	if len(fake.chatRequests) != 1 {
		t.Fatalf("expected one chat request, got %d", len(fake.chatRequests))
	}
	req := fake.chatRequests[0]
	if req.Message != "what changed?" || req.SessionID != nil {
		t.Fatalf("unexpected chat request: %#v", req)
	}
	out := stdout.String()
	for _, want := range []string{"The policy changed in March.", "sources: policy.pdf", "session: s1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestChatCommandContinuesSession(t *testing.T) {
	fake := &fakeAPI{chatResp: &types.ChatResponse{Message: "ok", SessionID: "s1"}}
	env, _, _ := testEnv(fake)

	if err := NewChatCommand(env).Run([]string{"--session", "s1", "and", "then?"}); err != nil {
		t.Fatalf("expected chat to succeed, got err=%v", err)
	}
	req := fake.chatRequests[0]
	if req.SessionID == nil || *req.SessionID != "s1" {
		t.Fatalf("expected session s1, got %#v", req.SessionID)
	}
}

func TestChatCommandRequiresMessage(t *testing.T) {
	fake := &fakeAPI{}
	env, _, _ := testEnv(fake)

	err := NewChatCommand(env).Run([]string{"   "})
	if !errors.Is(err, dashboard.ErrEmptyMessage) {
		t.Fatalf("expected empty message error, got %v", err)
	}
	if len(fake.chatRequests) != 0 {
		t.Fatalf("expected no request, got %d", len(fake.chatRequests))
	}
}

func TestChatCommandReturnsBackendDetail(t *testing.T) {
	fake := &fakeAPI{chatErr: &client.APIError{StatusCode: 500, Message: "model overloaded"}}
	env, stdout, _ := testEnv(fake)

	err := NewChatCommand(env).Run([]string{"hello"})
	if err == nil || client.Message(err) != "model overloaded" {
		t.Fatalf("expected backend detail, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %q", stdout.String())
	}
}

func TestSessionsCommandPrintsTable(t *testing.T) {
	fake := &fakeAPI{
		sessions: []types.Session{{
			SessionID: "s1",
			UpdatedAt: "2024-05-01T10:00:00",
			Messages: []types.Message{
				{Role: types.MessageRoleUser, Content: "first\nquestion"},
				{Role: types.MessageRoleAssistant, Content: "answer"},
			},
		}},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewSessionsCommand(env).Run(nil); err != nil {
		t.Fatalf("expected sessions to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "ID") || !strings.Contains(out, "MESSAGES") {
		t.Fatalf("expected header in output, got %q", out)
	}
	if !strings.Contains(out, "s1") || !strings.Contains(out, "first question") {
		t.Fatalf("expected session row in output, got %q", out)
	}
}

func TestSessionCommandRequiresID(t *testing.T) {
	env, _, _ := testEnv(&fakeAPI{})
	err := NewSessionCommand(env).Run(nil)
	if err == nil || !strings.Contains(err.Error(), "session id") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestSessionCommandWritesJSON(t *testing.T) {
	fake := &fakeAPI{session: &types.Session{SessionID: "s1", Messages: []types.Message{{Role: types.MessageRoleUser, Content: "hi"}}}}
	env, stdout, _ := testEnv(fake)

	if err := NewSessionCommand(env).Run([]string{"--json", "s1"}); err != nil {
		t.Fatalf("expected session to succeed, got err=%v", err)
	}
	var got types.Session
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("expected valid json, got err=%v raw=%q", err, stdout.String())
	}
	if got.SessionID != "s1" || len(got.Messages) != 1 {
		t.Fatalf("unexpected session: %#v", got)
	}
}

func TestRetrieveCommandBuildsRequest(t *testing.T) {
	score := 0.8123
	fake := &fakeAPI{
		retrieveResp: &types.RetrievalResponse{
			Query:          "refund window",
			TotalRetrieved: 1,
			Documents:      []types.RetrievedDocument{{Text: "Refunds within 30 days.", Source: "terms.pdf", Score: &score}},
		},
	}
	env, stdout, _ := testEnv(fake)

	err := NewRetrieveCommand(env).Run([]string{"--top-k", "5", "--rerank", "--pipeline", "semantic", "refund", "window"})
	if err != nil {
		t.Fatalf("expected retrieve to succeed, got err=%v", err)
	}
	req := fake.retrieveRequests[0]
	if req.Query != "refund window" || *req.TopK != 5 || !*req.UseReranking || *req.UseQueryEnhancer {
		t.Fatalf("unexpected retrieval request: %#v", req)
	}
	if req.PipelineType != types.PipelineSemantic {
		t.Fatalf("expected semantic pipeline, got %q", req.PipelineType)
	}
	out := stdout.String()
	if !strings.Contains(out, "terms.pdf (score 0.812)") || !strings.Contains(out, "Refunds within 30 days.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRetrieveCommandValidatesForm(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "empty query", args: nil, want: "query is required"},
		{name: "top k too large", args: []string{"--top-k", "51", "q"}, want: "top_k must be between 1 and 50"},
		{name: "unknown pipeline", args: []string{"--pipeline", "bm25", "q"}, want: "unknown pipeline type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAPI{}
			env, _, _ := testEnv(fake)
			err := NewRetrieveCommand(env).Run(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
			if len(fake.retrieveRequests) != 0 {
				t.Fatalf("expected no request, got %d", len(fake.retrieveRequests))
			}
		})
	}
}

func TestIngestCommandWatchesJobToCompletion(t *testing.T) {
	files := 2
	fake := &fakeAPI{
		folders: []types.AssetFolder{{Name: "docs", Path: "/data/docs", FileCount: &files}},
		jobResp: &types.IngestionJobResponse{JobID: "job-1", Status: "pending"},
		jobSteps: []types.TaskProgress{
			{JobID: "job-1", Status: types.IngestionStatusProcessing, TotalDocuments: 2, ProcessedDocuments: 1, ProgressPercentage: 50, CurrentFile: "a.pdf"},
			{JobID: "job-1", Status: types.IngestionStatusCompleted, TotalDocuments: 2, ProcessedDocuments: 2, SuccessfulDocuments: 2, ProgressPercentage: 100},
		},
	}
	env, stdout, stderr := testEnv(fake)

	err := NewIngestCommand(env).Run([]string{"--json", "--pipeline", "semantic", "--watch", "/data/docs"})
	if err != nil {
		t.Fatalf("expected ingest to succeed, got err=%v", err)
	}
	req := fake.jobRequests[0]
	if req.FolderPath != "/data/docs" || !reflect.DeepEqual(req.FileTypes, []string{"pdf", "json"}) || req.PipelineType != types.PipelineSemantic {
		t.Fatalf("unexpected ingestion request: %#v", req)
	}
	out := stdout.String()
	for _, want := range []string{
		"job-1\n",
		"job-1 Running 50% 1/2 files current=a.pdf",
		"job-1 Complete 100% 2/2 files",
		"✓ Ingestion complete: 2 of 2 documents ingested",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
	if strings.Contains(stderr.String(), "warning") {
		t.Fatalf("expected no warning, got %q", stderr.String())
	}
}

func TestIngestCommandWarnsOnEmptyFolder(t *testing.T) {
	empty := 0
	fake := &fakeAPI{
		folders: []types.AssetFolder{{Name: "empty", Path: "/data/empty", FileCount: &empty}},
		jobResp: &types.IngestionJobResponse{JobID: "job-2"},
	}
	env, stdout, stderr := testEnv(fake)

	if err := NewIngestCommand(env).Run([]string{"--folder", "/data/empty"}); err != nil {
		t.Fatalf("expected ingest to succeed, got err=%v", err)
	}
	if !strings.Contains(stderr.String(), "warning: Selected folder has no files") {
		t.Fatalf("expected empty folder warning, got %q", stderr.String())
	}
	if stdout.String() != "job-2\n" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestIngestCommandRequiresFileType(t *testing.T) {
	fake := &fakeAPI{}
	env, _, _ := testEnv(fake)
	err := NewIngestCommand(env).Run([]string{"--pdf=false", "/data/docs"})
	if !errors.Is(err, dashboard.ErrNoFileTypes) {
		t.Fatalf("expected file type error, got %v", err)
	}
}

func TestJobCommandWatchReportsFailure(t *testing.T) {
	fake := &fakeAPI{
		jobSteps: []types.TaskProgress{
			{JobID: "job-3", Status: types.IngestionStatusChunking},
			{JobID: "job-3", Status: types.IngestionStatusFailed, ErrorMessage: "parser crashed"},
		},
	}
	env, stdout, _ := testEnv(fake)

	err := NewJobCommand(env).Run([]string{"--watch", "job-3"})
	if err == nil || !strings.Contains(err.Error(), "job job-3 failed") {
		t.Fatalf("expected job failure, got %v", err)
	}
	if !strings.Contains(stdout.String(), "✗ Ingestion failed: parser crashed") {
		t.Fatalf("expected failure notification, got %q", stdout.String())
	}
}

func TestJobCommandWatchOfSettledJobDoesNotNotify(t *testing.T) {
	fake := &fakeAPI{
		jobSteps: []types.TaskProgress{{JobID: "job-4", Status: types.IngestionStatusCompleted, TotalDocuments: 1, ProcessedDocuments: 1, SuccessfulDocuments: 1, ProgressPercentage: 100}},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewJobCommand(env).Run([]string{"--watch", "job-4"}); err != nil {
		t.Fatalf("expected watch to succeed, got err=%v", err)
	}
	if fake.jobStatusReads() != 1 {
		t.Fatalf("expected a single read, got %d", fake.jobStatusReads())
	}
	if strings.Contains(stdout.String(), "Ingestion complete") {
		t.Fatalf("expected no notification for an already settled job, got %q", stdout.String())
	}
}

func TestJobsCommandWatchStopsWhenIdle(t *testing.T) {
	fake := &fakeAPI{
		jobs: []types.TaskProgress{{JobID: "job-5", Status: types.IngestionStatusCompleted, TotalDocuments: 3, ProcessedDocuments: 3, ProgressPercentage: 100}},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewJobsCommand(env).Run([]string{"--watch"}); err != nil {
		t.Fatalf("expected jobs watch to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "STATUS") || !strings.Contains(out, "job-5") || !strings.Contains(out, "Complete") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestEvaluateCommandReusesQuestions(t *testing.T) {
	fake := &fakeAPI{evalResp: &types.EvaluationStartResponse{EvaluationID: "e2"}}
	env, stdout, _ := testEnv(fake)

	err := NewEvaluateCommand(env).Run([]string{"--reuse", "e1", "--top-k", "3", "--questions", "99", "/data/docs"})
	if err != nil {
		t.Fatalf("expected evaluate to succeed, got err=%v", err)
	}
	req := fake.evalRequests[0]
	if req.SourceEvaluationID == nil || *req.SourceEvaluationID != "e1" {
		t.Fatalf("expected source evaluation e1, got %#v", req.SourceEvaluationID)
	}
	if req.NumQuestionsPerDoc != nil {
		t.Fatalf("expected questions to be omitted when reusing, got %d", *req.NumQuestionsPerDoc)
	}
	if req.FolderPath != "/data/docs" || *req.TopK != 3 {
		t.Fatalf("unexpected evaluation request: %#v", req)
	}
	if stdout.String() != "e2\n" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestEvaluateCommandWatchPrintsMetrics(t *testing.T) {
	hit, mrr := 0.75, 0.6123
	fake := &fakeAPI{
		evalResp: &types.EvaluationStartResponse{EvaluationID: "e3"},
		evalSteps: []types.EvaluationStatusResponse{
			{EvaluationID: "e3", Status: types.EvaluationStatusRunning, FolderPath: "/data/docs"},
			{EvaluationID: "e3", Status: types.EvaluationStatusCompleted, FolderPath: "/data/docs",
				ResultsSummary: &types.EvaluationResultsSummary{HitRate: &hit, MRR: &mrr}},
		},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewEvaluateCommand(env).Run([]string{"--watch", "--folder", "/data/docs"}); err != nil {
		t.Fatalf("expected evaluate to succeed, got err=%v", err)
	}
	out := stdout.String()
	for _, want := range []string{"e3 Running", "e3 Completed folder=/data/docs", "✓ Evaluation complete: Hit rate 75.0%, MRR 0.612"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestEvaluationsCommandComparesSelected(t *testing.T) {
	hit := 0.5
	topK := 5
	fake := &fakeAPI{
		evals: []types.EvaluationStatusResponse{
			{EvaluationID: "e1", Status: types.EvaluationStatusCompleted, FolderPath: "/a", RetrieveParams: types.RetrieveParams{TopK: &topK}, ResultsSummary: &types.EvaluationResultsSummary{HitRate: &hit}},
			{EvaluationID: "e2", Status: types.EvaluationStatusCompleted, FolderPath: "/b"},
			{EvaluationID: "e3", Status: types.EvaluationStatusRunning, FolderPath: "/c"},
		},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewEvaluationsCommand(env).Run([]string{"--compare", "e1", "e3"}); err != nil {
		t.Fatalf("expected compare to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "HIT RATE") || !strings.Contains(out, "e1") || !strings.Contains(out, "50.0%") {
		t.Fatalf("expected e1 comparison row, got %q", out)
	}
	if strings.Contains(out, "e2") || strings.Contains(out, "e3") {
		t.Fatalf("expected only selected completed evaluations, got %q", out)
	}
	if fake.evalLimit != config.Default().EvaluationsLimit() {
		t.Fatalf("expected configured list limit, got %d", fake.evalLimit)
	}
}

func TestEvaluationsCommandListsAll(t *testing.T) {
	fake := &fakeAPI{
		evals: []types.EvaluationStatusResponse{
			{EvaluationID: "e1", Status: types.EvaluationStatusFailed, FolderPath: "/a"},
		},
	}
	env, stdout, _ := testEnv(fake)

	if err := NewEvaluationsCommand(env).Run(nil); err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "e1") || !strings.Contains(out, "Failed") || !strings.Contains(out, "N/A") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConfigCommandFormatsAgree(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RAGDASH_HOME", home)
	load := func() (config.Config, error) {
		cfg := config.Default()
		cfg.API.BaseURL = "backend:9000/"
		cfg.Polling.StopIdleJobList = true
		return cfg, nil
	}

	decoded := map[string]configOutput{}
	for _, format := range []string{"json", "toml", "yaml"} {
		stdout := &bytes.Buffer{}
		cmd := NewConfigCommand(stdout, &bytes.Buffer{}, load)
		if err := cmd.Run([]string{"--format", format}); err != nil {
			t.Fatalf("%s: expected config to succeed, got err=%v", format, err)
		}
		var out configOutput
		var err error
		switch format {
		case "json":
			err = json.Unmarshal(stdout.Bytes(), &out)
		case "toml":
			err = toml.Unmarshal(stdout.Bytes(), &out)
		case "yaml":
			err = yaml.Unmarshal(stdout.Bytes(), &out)
		}
		if err != nil {
			t.Fatalf("%s: expected parseable output, got err=%v raw=%q", format, err, stdout.String())
		}
		decoded[format] = out
	}

	got := decoded["json"]
	if got.API.BaseURL != "http://backend:9000" {
		t.Fatalf("expected normalized base url, got %q", got.API.BaseURL)
	}
	if !got.Polling.StopIdleJobList || got.Polling.JobStatusIntervalMS != 5000 {
		t.Fatalf("unexpected polling config: %#v", got.Polling)
	}
	if got.ConfigPath != filepath.Join(home, "config.toml") {
		t.Fatalf("unexpected config path: %q", got.ConfigPath)
	}
	for _, format := range []string{"toml", "yaml"} {
		if !reflect.DeepEqual(decoded[format], got) {
			t.Fatalf("%s output differs from json:\n%#v\n%#v", format, decoded[format], got)
		}
	}
}

func TestConfigCommandDefaultSkipsLoader(t *testing.T) {
	t.Setenv("RAGDASH_HOME", t.TempDir())
	stdout := &bytes.Buffer{}
	cmd := NewConfigCommand(stdout, &bytes.Buffer{}, func() (config.Config, error) {
		return config.Config{}, errors.New("should not load")
	})
	if err := cmd.Run([]string{"--default"}); err != nil {
		t.Fatalf("expected defaults to print, got err=%v", err)
	}
	if !strings.Contains(stdout.String(), `"base_url": "http://localhost:8000"`) {
		t.Fatalf("expected default base url, got %q", stdout.String())
	}
}

func TestConfigCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewConfigCommand(&bytes.Buffer{}, &bytes.Buffer{}, nil)
	err := cmd.Run([]string{"--format", "ini"})
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestUICommandOpensStateAndRunsUI(t *testing.T) {
	fake := &fakeAPI{}
	env, _, _ := testEnv(fake)
	dir := t.TempDir()
	var (
		runs    int
		logs    int
		gotAPI  dashboard.API
		gotOpts app.Options
	)
	cmd := NewUICommand(env,
		func(_ context.Context, api dashboard.API, opts app.Options) error {
			runs++
			gotAPI = api
			gotOpts = opts
			return nil
		},
		func() (store.Repository, error) {
			return store.NewBboltRepository(filepath.Join(dir, "state.db"))
		},
		func(config.Config) (logging.Logger, io.Closer, error) {
			logs++
			return logging.Nop(), io.NopCloser(strings.NewReader("")), nil
		},
	)

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected ui command to succeed, got err=%v", err)
	}
	if runs != 1 || logs != 1 {
		t.Fatalf("expected one ui run and one log open, got runs=%d logs=%d", runs, logs)
	}
	if gotAPI != dashboard.API(fake) {
		t.Fatalf("expected the factory client to reach the ui")
	}
	if gotOpts.Store == nil {
		t.Fatalf("expected state store to be wired")
	}
	if gotOpts.Metrics != nil || gotOpts.Cache != nil {
		t.Fatalf("expected no metrics without --metrics-addr")
	}
	if gotOpts.Config.JobStatusInterval() != testConfig().JobStatusInterval() {
		t.Fatalf("expected loaded config to reach the ui")
	}
}

func TestUICommandNoStateSkipsStore(t *testing.T) {
	env, _, _ := testEnv(&fakeAPI{})
	opened := 0
	var gotOpts app.Options
	cmd := NewUICommand(env,
		func(_ context.Context, _ dashboard.API, opts app.Options) error {
			gotOpts = opts
			return nil
		},
		func() (store.Repository, error) {
			opened++
			return nil, errors.New("unexpected")
		},
		nil,
	)
	if err := cmd.Run([]string{"--no-state"}); err != nil {
		t.Fatalf("expected ui command to succeed, got err=%v", err)
	}
	if opened != 0 || gotOpts.Store != nil {
		t.Fatalf("expected store to be skipped, opened=%d", opened)
	}
}

func TestBuildCommandsRegistersEverySubcommand(t *testing.T) {
	commands := buildCommands(defaultCommandWiring(&bytes.Buffer{}, &bytes.Buffer{}))
	for _, name := range []string{
		"chat", "sessions", "session", "retrieve", "folders", "ingest", "jobs", "job",
		"evaluate", "evaluations", "evaluation", "config", "ui",
	} {
		if _, ok := commands[name]; !ok {
			t.Fatalf("expected %q to be registered", name)
		}
		if !strings.Contains(usageText, "  "+name+" ") {
			t.Fatalf("expected %q in usage text", name)
		}
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	retry := 0
	cfg.Cache.ReadRetry = &retry
	cfg.Polling.JobStatusIntervalMS = 5
	cfg.Polling.JobListIntervalMS = 5
	cfg.Polling.EvaluationIntervalMS = 5
	cfg.Polling.StopIdleJobList = true
	cfg.Logging.Level = "error"
	return cfg
}

func testEnv(api *fakeAPI) (commandEnv, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return commandEnv{
		stdout: stdout,
		stderr: stderr,
		loadConfig: func() (config.Config, error) {
			return testConfig(), nil
		},
		newClient: func(config.Config, logging.Logger) dashboard.API {
			return api
		},
		newContext: func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 5*time.Second)
		},
	}, stdout, stderr
}

type fakeAPI struct {
	mu sync.Mutex

	chatResp     *types.ChatResponse
	chatErr      error
	chatRequests []types.ChatRequest

	sessions []types.Session
	session  *types.Session

	retrieveResp     *types.RetrievalResponse
	retrieveRequests []types.RetrievalRequest

	folders []types.AssetFolder

	jobResp     *types.IngestionJobResponse
	jobRequests []types.IngestionJobRequest
	jobSteps    []types.TaskProgress
	jobReads    int
	jobs        []types.TaskProgress

	evalResp     *types.EvaluationStartResponse
	evalRequests []types.EvaluationRequest
	evalSteps    []types.EvaluationStatusResponse
	evalReads    int
	evals        []types.EvaluationStatusResponse
	evalLimit    int
}

func (f *fakeAPI) SendChat(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatRequests = append(f.chatRequests, req)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chatResp == nil {
		return nil, errors.New("chatResp not configured")
	}
	return f.chatResp, nil
}

func (f *fakeAPI) GetSession(_ context.Context, id string) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil || f.session.SessionID != id {
		return nil, &client.APIError{StatusCode: 404, Message: "Session not found"}
	}
	return f.session, nil
}

func (f *fakeAPI) ListSessions(context.Context) ([]types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions, nil
}

func (f *fakeAPI) Retrieve(_ context.Context, req types.RetrievalRequest) (*types.RetrievalResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveRequests = append(f.retrieveRequests, req)
	if f.retrieveResp == nil {
		return nil, errors.New("retrieveResp not configured")
	}
	return f.retrieveResp, nil
}

func (f *fakeAPI) StartIngestionJob(_ context.Context, req types.IngestionJobRequest) (*types.IngestionJobResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobRequests = append(f.jobRequests, req)
	if f.jobResp == nil {
		return nil, errors.New("jobResp not configured")
	}
	return f.jobResp, nil
}

func (f *fakeAPI) GetJobStatus(context.Context, string) (*types.TaskProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobSteps) == 0 {
		return nil, errors.New("jobSteps not configured")
	}
	step := f.jobSteps[min(f.jobReads, len(f.jobSteps)-1)]
	f.jobReads++
	return &step, nil
}

func (f *fakeAPI) jobStatusReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobReads
}

func (f *fakeAPI) ListJobs(context.Context) ([]types.TaskProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs, nil
}

func (f *fakeAPI) ListFolders(context.Context) ([]types.AssetFolder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.folders, nil
}

func (f *fakeAPI) StartEvaluation(_ context.Context, req types.EvaluationRequest) (*types.EvaluationStartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalRequests = append(f.evalRequests, req)
	if f.evalResp == nil {
		return nil, errors.New("evalResp not configured")
	}
	return f.evalResp, nil
}

func (f *fakeAPI) GetEvaluation(context.Context, string) (*types.EvaluationStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.evalSteps) == 0 {
		return nil, errors.New("evalSteps not configured")
	}
	step := f.evalSteps[min(f.evalReads, len(f.evalSteps)-1)]
	f.evalReads++
	return &step, nil
}

func (f *fakeAPI) ListEvaluations(_ context.Context, limit int) ([]types.EvaluationStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalLimit = limit
	return f.evals, nil
}
