package dashboard

import (
	"fmt"
	"strconv"

	"ragdash/internal/types"
)

const NotAvailable = "N/A"

// ComparisonRow is one completed evaluation formatted for side-by-side
// display.
type ComparisonRow struct {
	EvaluationID string
	ShortID      string
	FolderPath   string
	TopK         string
	Enhancer     string
	Reranking    string
	HitRate      string
	MRR          string
	AvgScore     string
	Questions    string
}

func NewComparisonRow(e types.EvaluationStatusResponse) ComparisonRow {
	row := ComparisonRow{
		EvaluationID: e.EvaluationID,
		ShortID:      ShortID(e.EvaluationID),
		FolderPath:   e.FolderPath,
		TopK:         NotAvailable,
		Enhancer:     yesNo(e.RetrieveParams.UseQueryEnhancer),
		Reranking:    yesNo(e.RetrieveParams.UseReranking),
		HitRate:      NotAvailable,
		MRR:          NotAvailable,
		AvgScore:     NotAvailable,
		Questions:    NotAvailable,
	}
	if e.RetrieveParams.TopK != nil {
		row.TopK = strconv.Itoa(*e.RetrieveParams.TopK)
	}
	if s := e.ResultsSummary; s != nil {
		row.HitRate = FormatPercent(s.HitRate)
		row.MRR = FormatScore(s.MRR)
		row.AvgScore = FormatScore(s.AvgScore)
		if s.TotalQuestions != nil {
			row.Questions = strconv.Itoa(*s.TotalQuestions)
		}
	}
	return row
}

// CompareEvaluations formats the completed evaluations. When selected is
// non-empty only those ids are kept, in list order.
func CompareEvaluations(evals []types.EvaluationStatusResponse, selected []string) []ComparisonRow {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	var rows []ComparisonRow
	for _, e := range evals {
		if e.Status != types.EvaluationStatusCompleted {
			continue
		}
		if len(want) > 0 && !want[e.EvaluationID] {
			continue
		}
		rows = append(rows, NewComparisonRow(e))
	}
	return rows
}

// CompletedEvaluations is the set offered for question reuse and comparison.
func CompletedEvaluations(evals []types.EvaluationStatusResponse) []types.EvaluationStatusResponse {
	var out []types.EvaluationStatusResponse
	for _, e := range evals {
		if e.Status == types.EvaluationStatusCompleted {
			out = append(out, e)
		}
	}
	return out
}

// ToggleSelection adds id when absent and removes it when present.
func ToggleSelection(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// FormatPercent renders a 0..1 ratio as a percentage with one decimal.
func FormatPercent(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func FormatScore(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.3f", *v)
}

// FormatProgress renders "45% 9/20 files".
func FormatProgress(p types.TaskProgress) string {
	return fmt.Sprintf("%s%% %d/%d files",
		strconv.FormatFloat(p.ProgressPercentage, 'f', -1, 64),
		p.ProcessedDocuments, p.TotalDocuments)
}

func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
