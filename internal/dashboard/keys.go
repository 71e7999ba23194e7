package dashboard

import "ragdash/internal/query"

// Key families shared by reads and the invalidations that follow writes.
var (
	SessionFamily     = query.NewKey("session")
	SessionsKey       = query.NewKey("sessions")
	JobStatusFamily   = query.NewKey("ingestion", "status")
	JobsKey           = query.NewKey("ingestion", "jobs")
	FoldersKey        = query.NewKey("assets", "folders")
	EvaluationFamily  = query.NewKey("evaluation")
	EvaluationsFamily = query.NewKey("evaluations")
)

func SessionKey(id string) query.Key {
	return query.NewKey("session", id)
}

func JobStatusKey(jobID string) query.Key {
	return query.NewKey("ingestion", "status", jobID)
}

func EvaluationKey(id string) query.Key {
	return query.NewKey("evaluation", id)
}

func EvaluationsKey(limit int) query.Key {
	return query.NewKey("evaluations", limit)
}
