package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"ragdash/internal/mutation"
)

const (
	writeSendMessage     = "send_message"
	writeRetrieve        = "retrieve"
	writeStartJob        = "start_job"
	writeStartEvaluation = "start_evaluation"
)

// writeFailure is the banner shown while the newest run of a write has
// failed. Retry replays that run's variables.
type writeFailure struct {
	name string
	err  error
}

func writeLabel(name string) string {
	switch name {
	case writeSendMessage:
		return "send message"
	case writeRetrieve:
		return "retrieval"
	case writeStartJob:
		return "start ingestion"
	case writeStartEvaluation:
		return "start evaluation"
	}
	return name
}

func (m *Model) watchMutations() {
	events := m.events
	forward := func(name string) func(mutation.Status, error) {
		return func(status mutation.Status, err error) {
			events.send(mutationMsg{name: name, status: status, err: err})
		}
	}
	m.unsubscribe = append(m.unsubscribe,
		subscribeStatus(m.dash.SendMessage, forward(writeSendMessage)),
		subscribeStatus(m.dash.Retrieve, forward(writeRetrieve)),
		subscribeStatus(m.dash.StartJob, forward(writeStartJob)),
		subscribeStatus(m.dash.StartEvaluation, forward(writeStartEvaluation)),
	)
}

func subscribeStatus[V, R any](mut *mutation.Mutation[V, R], fn func(mutation.Status, error)) func() {
	return mut.Subscribe(func(s mutation.State[V, R]) {
		fn(s.Status, s.Err)
	})
}

func (m *Model) applyMutationState(msg mutationMsg) tea.Cmd {
	switch msg.status {
	case mutation.StatusError:
		m.banner = &writeFailure{name: msg.name, err: msg.err}
	case mutation.StatusPending:
		if m.banner != nil && m.banner.name == msg.name {
			m.banner = nil
		}
		return m.spinner.Tick
	default:
		if m.banner != nil && m.banner.name == msg.name {
			m.banner = nil
		}
	}
	return nil
}

func (m *Model) retryFailedWrite() tea.Cmd {
	if m.banner == nil {
		return nil
	}
	ctx := m.ctx
	var run tea.Cmd
	switch m.banner.name {
	case writeSendMessage:
		mut := m.dash.SendMessage
		run = func() tea.Msg {
			resp, err := mut.Retry(ctx)
			return chatDoneMsg{resp: resp, err: err}
		}
	case writeRetrieve:
		mut := m.dash.Retrieve
		run = func() tea.Msg {
			resp, err := mut.Retry(ctx)
			return retrieveDoneMsg{resp: resp, err: err}
		}
	case writeStartJob:
		mut := m.dash.StartJob
		run = func() tea.Msg {
			resp, err := mut.Retry(ctx)
			return jobStartedMsg{resp: resp, err: err}
		}
	case writeStartEvaluation:
		mut := m.dash.StartEvaluation
		run = func() tea.Msg {
			resp, err := mut.Retry(ctx)
			return evaluationStartedMsg{resp: resp, err: err}
		}
	default:
		return nil
	}
	m.status = "retrying " + writeLabel(m.banner.name)
	return tea.Batch(run, m.spinner.Tick)
}

// dismissFailure resets the failed write back to idle; cached data is left
// alone.
func (m *Model) dismissFailure() {
	if m.banner == nil {
		return
	}
	switch m.banner.name {
	case writeSendMessage:
		m.dash.SendMessage.Reset()
	case writeRetrieve:
		m.dash.Retrieve.Reset()
	case writeStartJob:
		m.dash.StartJob.Reset()
	case writeStartEvaluation:
		m.dash.StartEvaluation.Reset()
	}
	m.banner = nil
}

func (m *Model) viewBanner() string {
	if m.banner == nil {
		return ""
	}
	text := fmt.Sprintf(" %s failed: %v · ctrl+r retry · esc dismiss ", writeLabel(m.banner.name), m.banner.err)
	return bannerStyle.Render(truncateToWidth(text, m.width))
}
