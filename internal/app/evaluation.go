package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ragdash/internal/dashboard"
	"ragdash/internal/logging"
	"ragdash/internal/types"
)

type evaluationTab struct {
	form        dashboard.EvaluationForm
	evaluations []types.EvaluationStatusResponse
	listErr     error
	cursor      int
	active      *types.EvaluationStatusResponse
}

func newEvaluationTab() evaluationTab {
	return evaluationTab{form: dashboard.DefaultEvaluationForm()}
}

func (t *evaluationTab) clampCursor() {
	t.cursor = min(max(0, len(t.evaluations)-1), max(0, t.cursor))
}

func (t *evaluationTab) current() (types.EvaluationStatusResponse, bool) {
	if t.cursor < 0 || t.cursor >= len(t.evaluations) {
		return types.EvaluationStatusResponse{}, false
	}
	return t.evaluations[t.cursor], true
}

func (m *Model) updateEvaluation(msg tea.KeyMsg) tea.Cmd {
	tab := &m.evaluation
	form := &tab.form
	switch {
	case keyMatches(msg, m.keys.Up):
		tab.cursor--
		tab.clampCursor()
	case keyMatches(msg, m.keys.Down):
		tab.cursor++
		tab.clampCursor()
	case keyMatches(msg, m.keys.ToggleCompare):
		if e, ok := tab.current(); ok {
			m.appState.CompareEvaluationIDs = dashboard.ToggleSelection(m.appState.CompareEvaluationIDs, e.EvaluationID)
			return m.persistAppState()
		}
	case keyMatches(msg, m.keys.CycleFolder):
		form.FolderPath = m.nextFolder(form.FolderPath)
	case keyMatches(msg, m.keys.TopKDown):
		form.TopK = max(dashboard.MinTopK, form.TopK-1)
	case keyMatches(msg, m.keys.TopKUp):
		form.TopK = min(dashboard.MaxTopK, form.TopK+1)
	case keyMatches(msg, m.keys.QuestionsDown):
		form.QuestionsPerDoc = max(dashboard.MinQuestionsPerDoc, form.QuestionsPerDoc-1)
	case keyMatches(msg, m.keys.QuestionsUp):
		form.QuestionsPerDoc = min(dashboard.MaxQuestionsPerDoc, form.QuestionsPerDoc+1)
	case keyMatches(msg, m.keys.ToggleEnhancer):
		form.UseQueryEnhancer = !form.UseQueryEnhancer
	case keyMatches(msg, m.keys.ToggleRerank):
		form.UseReranking = !form.UseReranking
	case keyMatches(msg, m.keys.ReuseQuestions):
		if form.ReusesQuestions() {
			form.SourceEvaluationID = ""
		} else if e, ok := tab.current(); ok {
			form.SourceEvaluationID = e.EvaluationID
			if form.FolderPath == "" {
				form.FolderPath = e.FolderPath
			}
		}
	case keyMatches(msg, m.keys.WatchEvaluation):
		if e, ok := tab.current(); ok {
			m.watchEvaluation(e.EvaluationID)
			return m.persistAppState()
		}
	case keyMatches(msg, m.keys.Submit):
		if form.FolderPath == "" {
			form.FolderPath = m.ingestion.form.FolderPath
		}
		req, err := form.Request()
		if err != nil {
			m.status = err.Error()
			return nil
		}
		start := m.dash.StartEvaluation
		ctx := m.ctx
		return tea.Batch(func() tea.Msg {
			resp, err := start.Run(ctx, req)
			return evaluationStartedMsg{resp: resp, err: err}
		}, m.spinner.Tick)
	}
	return nil
}

func (m *Model) nextFolder(current string) string {
	folders := m.ingestion.folders
	if len(folders) == 0 {
		return current
	}
	for i, f := range folders {
		if f.Path == current {
			return folders[(i+1)%len(folders)].Path
		}
	}
	return folders[0].Path
}

func (m *Model) onEvaluationStarted(msg evaluationStartedMsg) tea.Cmd {
	if msg.err != nil || msg.resp == nil {
		return nil
	}
	m.status = fmt.Sprintf("evaluation %s started", dashboard.ShortID(msg.resp.EvaluationID))
	m.watchEvaluation(msg.resp.EvaluationID)
	return m.persistAppState()
}

func (m *Model) watchEvaluation(id string) {
	if m.evalWatch != nil {
		m.evalWatch.Stop()
		m.evalWatch = nil
	}
	m.appState.ActiveEvaluationID = id
	m.evaluation.active = nil
	m.dash.Select(dashboard.Selection{
		SessionID:    m.appState.ActiveSessionID,
		JobID:        m.appState.ActiveJobID,
		EvaluationID: id,
	})
	if id == "" {
		return
	}
	events := m.events
	session, err := m.dash.WatchEvaluation(m.ctx, id, dashboard.WatchOptions[*types.EvaluationStatusResponse]{
		OnUpdate: func(e *types.EvaluationStatusResponse) {
			events.send(evaluationProgressMsg{evaluation: e})
		},
	})
	if err != nil {
		m.logger.Warn("evaluation_watch_failed", logging.F("evaluation_id", id), logging.F("error", err))
		return
	}
	m.evalWatch = session
}

func (m *Model) viewEvaluation() string {
	tab := m.evaluation
	form := tab.form
	width := max(20, m.width-2)
	questions := fmt.Sprint(form.QuestionsPerDoc)
	if form.ReusesQuestions() {
		questions = "reuse " + dashboard.ShortID(form.SourceEvaluationID)
	}
	lines := []string{
		headerStyle.Render("New evaluation"),
		truncateToWidth(fmt.Sprintf("folder %s · top_k %d · questions %s · enhancer %s · rerank %s",
			valueOr(form.FolderPath, "(none)"), form.TopK, questions, onOff(form.UseQueryEnhancer), onOff(form.UseReranking)), width),
	}
	if e := tab.active; e != nil {
		line := fmt.Sprintf("active %s: %s", dashboard.ShortID(e.EvaluationID), e.Status.Label())
		if e.Status == types.EvaluationStatusFailed && e.ErrorMessage != "" {
			line += " · " + e.ErrorMessage
		}
		lines = append(lines, activityStyle.Render(truncateToWidth(line, width)))
	}
	lines = append(lines, "", headerStyle.Render("Evaluations"))
	if tab.listErr != nil && len(tab.evaluations) == 0 {
		lines = append(lines, readErrorLine(tab.listErr, width))
	}
	for i, e := range tab.evaluations {
		mark := " "
		if containsID(m.appState.CompareEvaluationIDs, e.EvaluationID) {
			mark = "●"
		}
		text := fmt.Sprintf("%s %-12s %-10s %s", mark, dashboard.ShortID(e.EvaluationID), e.Status.Label(), e.FolderPath)
		text = truncateCell(text, width)
		if i == tab.cursor {
			text = selectedStyle.Render(text)
		}
		lines = append(lines, text)
	}
	lines = append(lines, "", headerStyle.Render("Comparison"))
	lines = append(lines, comparisonTable(dashboard.CompareEvaluations(tab.evaluations, m.appState.CompareEvaluationIDs), width)...)
	return strings.Join(lines, "\n")
}

var comparisonColumns = []struct {
	title string
	width int
	value func(dashboard.ComparisonRow) string
}{
	{"ID", 12, func(r dashboard.ComparisonRow) string { return r.ShortID }},
	{"Folder", 18, func(r dashboard.ComparisonRow) string { return r.FolderPath }},
	{"Top K", 6, func(r dashboard.ComparisonRow) string { return r.TopK }},
	{"Enh", 4, func(r dashboard.ComparisonRow) string { return r.Enhancer }},
	{"Rerank", 7, func(r dashboard.ComparisonRow) string { return r.Reranking }},
	{"Hit rate", 9, func(r dashboard.ComparisonRow) string { return r.HitRate }},
	{"MRR", 7, func(r dashboard.ComparisonRow) string { return r.MRR }},
	{"Avg", 7, func(r dashboard.ComparisonRow) string { return r.AvgScore }},
	{"Qs", 5, func(r dashboard.ComparisonRow) string { return r.Questions }},
}

func comparisonTable(rows []dashboard.ComparisonRow, width int) []string {
	if len(rows) == 0 {
		return []string{chatMetaStyle.Render("No completed evaluations.")}
	}
	header := make([]string, 0, len(comparisonColumns))
	for _, col := range comparisonColumns {
		header = append(header, padCell(col.title, col.width))
	}
	out := []string{statusStyle.Render(truncateCell(strings.Join(header, " "), width))}
	for _, row := range rows {
		cells := make([]string, 0, len(comparisonColumns))
		for _, col := range comparisonColumns {
			cells = append(cells, padCell(col.value(row), col.width))
		}
		out = append(out, truncateCell(strings.Join(cells, " "), width))
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
