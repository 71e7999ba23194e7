package dashboard

import (
	"fmt"

	"ragdash/internal/types"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a user-visible event such as a job finishing.
type Notification struct {
	Level      Level
	Title      string
	Message    string
	ResourceID string
}

type Notifier interface {
	Notify(Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

func jobNotification(p *types.TaskProgress) Notification {
	if p.Status == types.IngestionStatusFailed {
		msg := p.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("Job %s failed", p.JobID)
		}
		return Notification{Level: LevelError, Title: "Ingestion failed", Message: msg, ResourceID: p.JobID}
	}
	msg := fmt.Sprintf("%d of %d documents ingested", p.SuccessfulDocuments, p.TotalDocuments)
	if p.FailedDocuments > 0 {
		msg += fmt.Sprintf(", %d failed", p.FailedDocuments)
	}
	return Notification{Level: LevelSuccess, Title: "Ingestion complete", Message: msg, ResourceID: p.JobID}
}

func evaluationNotification(e *types.EvaluationStatusResponse) Notification {
	if e.Status == types.EvaluationStatusFailed {
		msg := e.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("Evaluation %s failed", e.EvaluationID)
		}
		return Notification{Level: LevelError, Title: "Evaluation failed", Message: msg, ResourceID: e.EvaluationID}
	}
	row := NewComparisonRow(*e)
	return Notification{
		Level:      LevelSuccess,
		Title:      "Evaluation complete",
		Message:    fmt.Sprintf("Hit rate %s, MRR %s", row.HitRate, row.MRR),
		ResourceID: e.EvaluationID,
	}
}
