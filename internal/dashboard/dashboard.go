package dashboard

import (
	"context"
	"errors"
	"sync"

	"ragdash/internal/clock"
	"ragdash/internal/config"
	"ragdash/internal/logging"
	"ragdash/internal/metrics"
	"ragdash/internal/mutation"
	"ragdash/internal/query"
	"ragdash/internal/types"
)

var ErrMissingID = errors.New("resource id is required")

// API is the backend surface the dashboard reads and writes through.
// *client.Client implements it.
type API interface {
	SendChat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	ListSessions(ctx context.Context) ([]types.Session, error)
	Retrieve(ctx context.Context, req types.RetrievalRequest) (*types.RetrievalResponse, error)
	StartIngestionJob(ctx context.Context, req types.IngestionJobRequest) (*types.IngestionJobResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*types.TaskProgress, error)
	ListJobs(ctx context.Context) ([]types.TaskProgress, error)
	ListFolders(ctx context.Context) ([]types.AssetFolder, error)
	StartEvaluation(ctx context.Context, req types.EvaluationRequest) (*types.EvaluationStartResponse, error)
	GetEvaluation(ctx context.Context, id string) (*types.EvaluationStatusResponse, error)
	ListEvaluations(ctx context.Context, limit int) ([]types.EvaluationStatusResponse, error)
}

type Options struct {
	Config    config.Config
	Scheduler clock.Scheduler
	// Cache is built from Config when nil. A supplied cache is not closed by
	// Dashboard.Close.
	Cache    *query.Cache
	Notifier Notifier
	// OnSelect runs when a write selects a new session, job or evaluation.
	OnSelect func(Selection)
	Metrics  *metrics.Recorder
	Logger   logging.Logger
}

// Selection is the resource each view currently shows.
type Selection struct {
	SessionID    string
	JobID        string
	EvaluationID string
}

// Dashboard binds the transport to the query cache, the pollers and the
// write coordinators for every feature.
type Dashboard struct {
	api       API
	cache     *query.Cache
	ownsCache bool
	sched     clock.Scheduler
	cfg       config.Config
	notifier  Notifier
	onSelect  func(Selection)
	metrics   *metrics.Recorder
	logger    logging.Logger

	SendMessage     *mutation.Mutation[types.ChatRequest, *types.ChatResponse]
	StartJob        *mutation.Mutation[types.IngestionJobRequest, *types.IngestionJobResponse]
	StartEvaluation *mutation.Mutation[types.EvaluationRequest, *types.EvaluationStartResponse]
	Retrieve        *mutation.Mutation[types.RetrievalRequest, *types.RetrievalResponse]

	mu        sync.Mutex
	selection Selection
}

func New(api API, opts Options) *Dashboard {
	sched := opts.Scheduler
	if sched == nil {
		sched = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	cache := opts.Cache
	owns := false
	if cache == nil {
		cache = query.New(sched, CacheConfig(opts.Config, logger))
		owns = true
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	d := &Dashboard{
		api:       api,
		cache:     cache,
		ownsCache: owns,
		sched:     sched,
		cfg:       opts.Config,
		notifier:  notifier,
		onSelect:  opts.OnSelect,
		metrics:   opts.Metrics,
		logger:    logging.Component(logger, "dashboard"),
	}
	d.wireMutations(logger)
	return d
}

// CacheConfig maps the [cache] settings onto the query cache.
func CacheConfig(cfg config.Config, logger logging.Logger) query.Config {
	qc := query.DefaultConfig()
	qc.StaleTime = cfg.StaleTime()
	qc.GCTime = cfg.GCTime()
	qc.Retry = cfg.ReadRetry()
	qc.RetryDelay = cfg.RetryDelay()
	qc.Logger = logger
	return qc
}

func (d *Dashboard) Cache() *query.Cache {
	return d.cache
}

func (d *Dashboard) Selection() Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection
}

// Select replaces the current selection, for example when restoring saved
// state or when the user picks an item from a list.
func (d *Dashboard) Select(sel Selection) {
	d.mu.Lock()
	d.selection = sel
	d.mu.Unlock()
	if d.onSelect != nil {
		d.onSelect(sel)
	}
}

func (d *Dashboard) updateSelection(fn func(*Selection)) {
	d.mu.Lock()
	fn(&d.selection)
	sel := d.selection
	d.mu.Unlock()
	if d.onSelect != nil {
		d.onSelect(sel)
	}
}

func (d *Dashboard) notify(n Notification) {
	d.metrics.Notification(n.Level.String())
	d.notifier.Notify(n)
}

func (d *Dashboard) Close() {
	if d.ownsCache {
		d.cache.Close()
	}
}

func (d *Dashboard) Session(ctx context.Context, id string) (*types.Session, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return query.Get(ctx, d.cache, SessionKey(id), d.sessionFetch(id))
}

func (d *Dashboard) Sessions(ctx context.Context) ([]types.Session, error) {
	return query.Get(ctx, d.cache, SessionsKey, d.api.ListSessions)
}

func (d *Dashboard) JobStatus(ctx context.Context, jobID string) (*types.TaskProgress, error) {
	if jobID == "" {
		return nil, ErrMissingID
	}
	return query.Get(ctx, d.cache, JobStatusKey(jobID), d.jobStatusFetch(jobID))
}

func (d *Dashboard) Jobs(ctx context.Context) ([]types.TaskProgress, error) {
	return query.Get(ctx, d.cache, JobsKey, d.api.ListJobs)
}

func (d *Dashboard) Folders(ctx context.Context) ([]types.AssetFolder, error) {
	return query.Get(ctx, d.cache, FoldersKey, d.api.ListFolders)
}

func (d *Dashboard) Evaluation(ctx context.Context, id string) (*types.EvaluationStatusResponse, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return query.Get(ctx, d.cache, EvaluationKey(id), d.evaluationFetch(id))
}

// Evaluations lists recent evaluations using the configured limit.
func (d *Dashboard) Evaluations(ctx context.Context) ([]types.EvaluationStatusResponse, error) {
	limit := d.cfg.EvaluationsLimit()
	return query.Get(ctx, d.cache, EvaluationsKey(limit), d.evaluationsFetch(limit))
}

// Query pairs a key with the fetcher that fills it, for views that
// subscribe instead of reading once.
type Query struct {
	Key   query.Key
	Fetch query.Fetcher
}

func (d *Dashboard) SessionQuery(id string) Query {
	return Query{Key: SessionKey(id), Fetch: query.Erase(d.sessionFetch(id))}
}

func (d *Dashboard) SessionsQuery() Query {
	return Query{Key: SessionsKey, Fetch: query.Erase(d.api.ListSessions)}
}

func (d *Dashboard) JobsQuery() Query {
	return Query{Key: JobsKey, Fetch: query.Erase(d.api.ListJobs)}
}

func (d *Dashboard) FoldersQuery() Query {
	return Query{Key: FoldersKey, Fetch: query.Erase(d.api.ListFolders)}
}

func (d *Dashboard) EvaluationsQuery() Query {
	limit := d.cfg.EvaluationsLimit()
	return Query{Key: EvaluationsKey(limit), Fetch: query.Erase(d.evaluationsFetch(limit))}
}

// Observe subscribes listener to q. Callers must Unsubscribe when the view
// goes away.
func (d *Dashboard) Observe(q Query, listener query.Listener) *query.Subscription {
	return d.cache.Subscribe(q.Key, q.Fetch, listener)
}

func (d *Dashboard) sessionFetch(id string) func(context.Context) (*types.Session, error) {
	return func(ctx context.Context) (*types.Session, error) {
		return d.api.GetSession(ctx, id)
	}
}

func (d *Dashboard) jobStatusFetch(jobID string) func(context.Context) (*types.TaskProgress, error) {
	return func(ctx context.Context) (*types.TaskProgress, error) {
		return d.api.GetJobStatus(ctx, jobID)
	}
}

func (d *Dashboard) evaluationFetch(id string) func(context.Context) (*types.EvaluationStatusResponse, error) {
	return func(ctx context.Context) (*types.EvaluationStatusResponse, error) {
		return d.api.GetEvaluation(ctx, id)
	}
}

func (d *Dashboard) evaluationsFetch(limit int) func(context.Context) ([]types.EvaluationStatusResponse, error) {
	return func(ctx context.Context) ([]types.EvaluationStatusResponse, error) {
		return d.api.ListEvaluations(ctx, limit)
	}
}
