package dashboard

import (
	"context"

	"ragdash/internal/logging"
	"ragdash/internal/poll"
	"ragdash/internal/query"
	"ragdash/internal/types"
)

type WatchOptions[T any] struct {
	OnUpdate func(T)
	OnError  func(error)
}

// WatchJob polls one ingestion job until it completes or fails. The
// returned session is already started.
func (d *Dashboard) WatchJob(ctx context.Context, jobID string, opts WatchOptions[*types.TaskProgress]) (*poll.Session[*types.TaskProgress], error) {
	if jobID == "" {
		return nil, ErrMissingID
	}
	key := JobStatusKey(jobID)
	fetch := d.jobStatusFetch(jobID)
	session, err := poll.New(d.sched, poll.Config[*types.TaskProgress]{
		Name:     "job_status",
		Interval: d.cfg.JobStatusInterval(),
		Fetch: func(ctx context.Context) (*types.TaskProgress, error) {
			p, err := query.Reload(ctx, d.cache, key, fetch)
			d.metrics.PollRead("job_status", err)
			return p, err
		},
		Terminal: func(p *types.TaskProgress) bool {
			return p != nil && p.Status.IsTerminal()
		},
		OnUpdate: opts.OnUpdate,
		OnTerminal: func(p *types.TaskProgress) {
			d.notify(jobNotification(p))
			d.refresh(ctx, JobsKey)
		},
		OnError: opts.OnError,
		Logger:  d.logger,
	})
	if err != nil {
		return nil, err
	}
	session.Start(ctx)
	return session, nil
}

// WatchEvaluation polls one evaluation until it completes or fails.
func (d *Dashboard) WatchEvaluation(ctx context.Context, id string, opts WatchOptions[*types.EvaluationStatusResponse]) (*poll.Session[*types.EvaluationStatusResponse], error) {
	if id == "" {
		return nil, ErrMissingID
	}
	key := EvaluationKey(id)
	fetch := d.evaluationFetch(id)
	session, err := poll.New(d.sched, poll.Config[*types.EvaluationStatusResponse]{
		Name:     "evaluation_status",
		Interval: d.cfg.EvaluationInterval(),
		Fetch: func(ctx context.Context) (*types.EvaluationStatusResponse, error) {
			e, err := query.Reload(ctx, d.cache, key, fetch)
			d.metrics.PollRead("evaluation_status", err)
			return e, err
		},
		Terminal: func(e *types.EvaluationStatusResponse) bool {
			return e != nil && e.Status.IsTerminal()
		},
		OnUpdate: opts.OnUpdate,
		OnTerminal: func(e *types.EvaluationStatusResponse) {
			d.notify(evaluationNotification(e))
			d.refresh(ctx, EvaluationsFamily)
		},
		OnError: opts.OnError,
		Logger:  d.logger,
	})
	if err != nil {
		return nil, err
	}
	session.Start(ctx)
	return session, nil
}

// WatchJobs polls the job list. It runs until stopped unless the
// stop_idle_job_list setting is on, in which case it ends once no listed
// job is still running.
func (d *Dashboard) WatchJobs(ctx context.Context, opts WatchOptions[[]types.TaskProgress]) (*poll.Session[[]types.TaskProgress], error) {
	cfg := poll.Config[[]types.TaskProgress]{
		Name:     "job_list",
		Interval: d.cfg.JobListInterval(),
		Fetch: func(ctx context.Context) ([]types.TaskProgress, error) {
			jobs, err := query.Reload(ctx, d.cache, JobsKey, d.api.ListJobs)
			d.metrics.PollRead("job_list", err)
			return jobs, err
		},
		OnUpdate: opts.OnUpdate,
		OnError:  opts.OnError,
		Logger:   d.logger,
	}
	if d.cfg.StopIdleJobList() {
		cfg.Terminal = AllJobsSettled
	}
	session, err := poll.New(d.sched, cfg)
	if err != nil {
		return nil, err
	}
	session.Start(ctx)
	return session, nil
}

// AllJobsSettled reports whether no job in the list can change any more.
func AllJobsSettled(jobs []types.TaskProgress) bool {
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (d *Dashboard) refresh(ctx context.Context, prefix query.Key) {
	if err := d.cache.Invalidate(ctx, prefix); err != nil {
		d.logger.Warn("refresh_failed",
			logging.F("key", prefix.String()),
			logging.F("error", err),
		)
	}
}
