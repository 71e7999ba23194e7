package dashboard

import (
	"context"

	"ragdash/internal/logging"
	"ragdash/internal/mutation"
	"ragdash/internal/query"
	"ragdash/internal/types"
)

func (d *Dashboard) wireMutations(logger logging.Logger) {
	d.SendMessage = mutation.New(recorded(d, "send_message", d.api.SendChat), mutation.Options[types.ChatRequest, *types.ChatResponse]{
		Name:   "send_message",
		Cache:  d.cache,
		Logger: logger,
		OnSuccess: func(_ types.ChatRequest, resp *types.ChatResponse) {
			if resp == nil || resp.SessionID == "" {
				return
			}
			d.updateSelection(func(sel *Selection) { sel.SessionID = resp.SessionID })
		},
		Invalidates: func(_ types.ChatRequest, resp *types.ChatResponse) []query.Key {
			keys := []query.Key{SessionsKey}
			if resp != nil && resp.SessionID != "" {
				keys = append([]query.Key{SessionKey(resp.SessionID)}, keys...)
			}
			return keys
		},
	})

	d.StartJob = mutation.New(recorded(d, "start_job", d.api.StartIngestionJob), mutation.Options[types.IngestionJobRequest, *types.IngestionJobResponse]{
		Name:   "start_job",
		Cache:  d.cache,
		Logger: logger,
		OnSuccess: func(_ types.IngestionJobRequest, resp *types.IngestionJobResponse) {
			if resp == nil || resp.JobID == "" {
				return
			}
			d.updateSelection(func(sel *Selection) { sel.JobID = resp.JobID })
		},
		Invalidates: func(types.IngestionJobRequest, *types.IngestionJobResponse) []query.Key {
			return []query.Key{JobsKey}
		},
	})

	d.StartEvaluation = mutation.New(recorded(d, "start_evaluation", d.api.StartEvaluation), mutation.Options[types.EvaluationRequest, *types.EvaluationStartResponse]{
		Name:   "start_evaluation",
		Cache:  d.cache,
		Logger: logger,
		OnSuccess: func(_ types.EvaluationRequest, resp *types.EvaluationStartResponse) {
			if resp == nil || resp.EvaluationID == "" {
				return
			}
			d.updateSelection(func(sel *Selection) { sel.EvaluationID = resp.EvaluationID })
		},
		Invalidates: func(types.EvaluationRequest, *types.EvaluationStartResponse) []query.Key {
			return []query.Key{EvaluationsFamily}
		},
	})

	// Retrieval tests are reads the user triggers by hand; nothing is cached
	// and nothing goes stale.
	d.Retrieve = mutation.New(recorded(d, "retrieve", d.api.Retrieve), mutation.Options[types.RetrievalRequest, *types.RetrievalResponse]{
		Name:   "retrieve",
		Logger: logger,
	})
}

func recorded[V, R any](d *Dashboard, name string, fn func(context.Context, V) (R, error)) mutation.Func[V, R] {
	return func(ctx context.Context, vars V) (R, error) {
		result, err := fn(ctx, vars)
		d.metrics.MutationRun(name, err)
		return result, err
	}
}

// Chat sends message, continuing sessionID when it is non-empty.
func (d *Dashboard) Chat(ctx context.Context, message, sessionID string) (*types.ChatResponse, error) {
	req, err := ChatRequest(message, sessionID)
	if err != nil {
		return nil, err
	}
	return d.SendMessage.Run(ctx, req)
}
