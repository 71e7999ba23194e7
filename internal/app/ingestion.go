package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdash/internal/dashboard"
	"ragdash/internal/logging"
	"ragdash/internal/types"
)

type ingestionTab struct {
	form       dashboard.IngestionForm
	folders    []types.AssetFolder
	foldersErr error
	cursor     int

	jobs     []types.TaskProgress
	jobsErr  error
	progress map[string]types.TaskProgress
	bar      progress.Model
}

func newIngestionTab() ingestionTab {
	return ingestionTab{
		form:     dashboard.DefaultIngestionForm(),
		progress: map[string]types.TaskProgress{},
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// selectFolder moves the cursor to path, or to the first folder when path is
// not listed.
func (t *ingestionTab) selectFolder(path string) {
	t.cursor = 0
	for i, f := range t.folders {
		if f.Path == path {
			t.cursor = i
			break
		}
	}
	if len(t.folders) > 0 {
		t.form.FolderPath = t.folders[t.cursor].Path
	}
}

func (m *Model) updateIngestion(msg tea.KeyMsg) tea.Cmd {
	tab := &m.ingestion
	switch {
	case keyMatches(msg, m.keys.Up), keyMatches(msg, m.keys.Down):
		if len(tab.folders) == 0 {
			return nil
		}
		delta := 1
		if keyMatches(msg, m.keys.Up) {
			delta = -1
		}
		tab.cursor = min(len(tab.folders)-1, max(0, tab.cursor+delta))
		tab.form.FolderPath = tab.folders[tab.cursor].Path
		m.appState.LastFolder = tab.form.FolderPath
		return m.persistAppState()
	case keyMatches(msg, m.keys.TogglePDF):
		tab.form.IncludePDF = !tab.form.IncludePDF
	case keyMatches(msg, m.keys.ToggleJSON):
		tab.form.IncludeJSON = !tab.form.IncludeJSON
	case keyMatches(msg, m.keys.CyclePipeline):
		tab.form.Pipeline = nextPipeline(tab.form.Pipeline)
	case keyMatches(msg, m.keys.PrevJob), keyMatches(msg, m.keys.NextJob):
		return m.focusJob(keyMatches(msg, m.keys.NextJob))
	case keyMatches(msg, m.keys.Submit):
		req, err := tab.form.Request()
		if err != nil {
			m.status = err.Error()
			return nil
		}
		start := m.dash.StartJob
		ctx := m.ctx
		return tea.Batch(func() tea.Msg {
			resp, err := start.Run(ctx, req)
			return jobStartedMsg{resp: resp, err: err}
		}, m.spinner.Tick)
	}
	return nil
}

func (m *Model) onJobStarted(msg jobStartedMsg) tea.Cmd {
	if msg.err != nil || msg.resp == nil {
		return nil
	}
	m.status = fmt.Sprintf("job %s started", dashboard.ShortID(msg.resp.JobID))
	m.watchJob(msg.resp.JobID)
	return m.persistAppState()
}

// focusJob steps through the listed jobs and watches the one it lands on.
func (m *Model) focusJob(forward bool) tea.Cmd {
	jobs := m.ingestion.jobs
	if len(jobs) == 0 {
		return nil
	}
	idx := -1
	for i, job := range jobs {
		if job.JobID == m.appState.ActiveJobID {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(jobs)
	} else if idx <= 0 {
		idx = len(jobs) - 1
	} else {
		idx--
	}
	m.watchJob(jobs[idx].JobID)
	return m.persistAppState()
}

func (m *Model) watchJob(jobID string) {
	if m.jobWatch != nil {
		m.jobWatch.Stop()
		m.jobWatch = nil
	}
	m.appState.ActiveJobID = jobID
	m.dash.Select(dashboard.Selection{
		SessionID:    m.appState.ActiveSessionID,
		JobID:        jobID,
		EvaluationID: m.appState.ActiveEvaluationID,
	})
	if jobID == "" {
		return
	}
	events := m.events
	session, err := m.dash.WatchJob(m.ctx, jobID, dashboard.WatchOptions[*types.TaskProgress]{
		OnUpdate: func(p *types.TaskProgress) {
			events.send(jobProgressMsg{progress: p})
		},
	})
	if err != nil {
		m.logger.Warn("job_watch_failed", logging.F("job_id", jobID), logging.F("error", err))
		return
	}
	m.jobWatch = session
}

func (m *Model) viewIngestion() string {
	tab := m.ingestion
	folderLines := []string{headerStyle.Render("Folders")}
	switch {
	case tab.foldersErr != nil && len(tab.folders) == 0:
		folderLines = append(folderLines, readErrorLine(tab.foldersErr, m.sidebarWidth()))
	case len(tab.folders) == 0:
		folderLines = append(folderLines, chatMetaStyle.Render("no folders"))
	}
	for i, f := range tab.folders {
		count := "?"
		if f.FileCount != nil {
			count = fmt.Sprint(*f.FileCount)
		}
		label := truncateCell(fmt.Sprintf("%s (%s)", f.Name, count), m.sidebarWidth()-2)
		style := sessionStyle
		if i == tab.cursor {
			style = selectedStyle
		}
		folderLines = append(folderLines, style.Render(" "+label))
	}
	sidebar := lipgloss.NewStyle().Width(m.sidebarWidth()).Render(strings.Join(folderLines, "\n"))

	width := m.mainWidth()
	main := []string{
		headerStyle.Render("New ingestion job"),
		fmt.Sprintf("folder %s · pdf %s · json %s · pipeline %s",
			valueOr(tab.form.FolderPath, "(none)"), onOff(tab.form.IncludePDF), onOff(tab.form.IncludeJSON), tab.form.Pipeline),
	}
	if warning := tab.form.Warning(tab.folders); warning != "" {
		main = append(main, warningTextStyle.Render(warning))
	}
	main = append(main, "")
	if id := m.appState.ActiveJobID; id != "" {
		main = append(main, headerStyle.Render("Job "+dashboard.ShortID(id)))
		if p, ok := tab.progress[id]; ok {
			main = append(main, tab.bar.ViewAs(p.ProgressPercentage/100), jobLine(p, width))
			if p.CurrentFile != "" && !p.Status.IsTerminal() {
				main = append(main, chatMetaStyle.Render(truncateToWidth("current: "+p.CurrentFile, width)))
			}
		} else {
			main = append(main, chatMetaStyle.Render("waiting for status…"))
		}
		main = append(main, "")
	}
	main = append(main, headerStyle.Render("Jobs"))
	if tab.jobsErr != nil && len(tab.jobs) == 0 {
		main = append(main, readErrorLine(tab.jobsErr, width))
	}
	for _, job := range tab.jobs {
		line := jobLine(job, width-2)
		if job.JobID == m.appState.ActiveJobID {
			line = markedStyle.Render(line)
		}
		main = append(main, " "+line)
	}
	body := lipgloss.NewStyle().Width(width).Render(strings.Join(main, "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, dividerStyle.Render("│"), body)
}

func jobLine(p types.TaskProgress, width int) string {
	text := fmt.Sprintf("%-12s %-9s %s", dashboard.ShortID(p.JobID), p.Status.Label(), dashboard.FormatProgress(p))
	switch p.Status {
	case types.IngestionStatusFailed:
		if p.ErrorMessage != "" {
			text += " · " + p.ErrorMessage
		}
		return errorTextStyle.Render(truncateCell(text, width))
	case types.IngestionStatusCompleted:
		return successTextStyle.Render(truncateCell(text, width))
	}
	return truncateCell(text, width)
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
