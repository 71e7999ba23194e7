package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"ragdash/internal/logging"
)

// applyAppState resumes what was on screen last time: the open session, the
// watched job and evaluation, the folder and the comparison picks. Watchers
// for work that already finished stay silent.
func (m *Model) applyAppState(msg appStateMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("app_state_load_failed", logging.F("error", msg.err))
		return nil
	}
	if msg.state == nil {
		return nil
	}
	state := *msg.state
	m.appState.LastFolder = state.LastFolder
	m.appState.CompareEvaluationIDs = append([]string(nil), state.CompareEvaluationIDs...)
	if state.LastFolder != "" {
		m.ingestion.selectFolder(state.LastFolder)
		m.ingestion.form.FolderPath = state.LastFolder
	}
	if state.ActiveSessionID != "" {
		m.openSession(state.ActiveSessionID)
	}
	if state.ActiveJobID != "" {
		m.watchJob(state.ActiveJobID)
	}
	if state.ActiveEvaluationID != "" {
		m.watchEvaluation(state.ActiveEvaluationID)
	}
	return nil
}

func (m *Model) persistAppState() tea.Cmd {
	return saveAppStateCmd(m.ctx, m.store, m.appState)
}
