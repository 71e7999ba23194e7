package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdash/internal/dashboard"
	"ragdash/internal/types"
)

type chatTab struct {
	input    textinput.Model
	viewport viewport.Model
	width    int

	sessions        []types.Session
	sessionsLoading bool
	sessionsErr     error
	cursor          int

	session    *types.Session
	sessionErr error
}

func newChatTab() chatTab {
	input := textinput.New()
	input.Placeholder = "Ask about your documents…"
	input.Prompt = "› "
	return chatTab{
		input:    input,
		viewport: viewport.New(40, minContentHeight),
	}
}

func (c *chatTab) resize(main, height int) {
	c.width = main
	c.input.Width = max(10, main-4)
	c.viewport.Width = main
	c.viewport.Height = max(1, height-3)
}

func (m *Model) updateChat(msg tea.KeyMsg) tea.Cmd {
	switch {
	case keyMatches(msg, m.keys.Submit):
		req, err := dashboard.ChatRequest(m.chat.input.Value(), m.appState.ActiveSessionID)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		return tea.Batch(m.sendChatCmd(req), m.spinner.Tick)
	case keyMatches(msg, m.keys.Up):
		m.moveSessionCursor(-1)
		return m.openCursorSession()
	case keyMatches(msg, m.keys.Down):
		m.moveSessionCursor(1)
		return m.openCursorSession()
	case keyMatches(msg, m.keys.NewChat):
		m.openSession("")
		m.status = "new chat"
		return m.persistAppState()
	case keyMatches(msg, m.keys.CopyAnswer):
		answer, ok := m.chat.session.LastAssistantMessage()
		if !ok {
			m.status = "no answer to copy"
			return nil
		}
		return copyCmd(m.ctx, answer.Content)
	case keyMatches(msg, m.keys.PageUp), keyMatches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.chat.viewport, cmd = m.chat.viewport.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return cmd
}

func (m *Model) sendChatCmd(req types.ChatRequest) tea.Cmd {
	send := m.dash.SendMessage
	ctx := m.ctx
	return func() tea.Msg {
		resp, err := send.Run(ctx, req)
		return chatDoneMsg{resp: resp, err: err}
	}
}

func (m *Model) onChatDone(msg chatDoneMsg) tea.Cmd {
	if msg.err != nil || msg.resp == nil {
		return nil
	}
	m.chat.input.Reset()
	if msg.resp.SessionID != m.appState.ActiveSessionID {
		m.openSession(msg.resp.SessionID)
	}
	return m.persistAppState()
}

func (m *Model) moveSessionCursor(delta int) {
	if len(m.chat.sessions) == 0 {
		return
	}
	m.chat.cursor = min(len(m.chat.sessions)-1, max(0, m.chat.cursor+delta))
}

func (m *Model) openCursorSession() tea.Cmd {
	if m.chat.cursor >= len(m.chat.sessions) {
		return nil
	}
	id := m.chat.sessions[m.chat.cursor].SessionID
	if id == m.appState.ActiveSessionID {
		return nil
	}
	m.openSession(id)
	return m.persistAppState()
}

// openSession swaps the transcript subscription to id; an empty id starts a
// new chat.
func (m *Model) openSession(id string) {
	if m.sessionSub != nil {
		m.sessionSub.Unsubscribe()
		m.sessionSub = nil
	}
	m.appState.ActiveSessionID = id
	m.chat.session = nil
	m.chat.sessionErr = nil
	m.dash.Select(dashboard.Selection{
		SessionID:    id,
		JobID:        m.appState.ActiveJobID,
		EvaluationID: m.appState.ActiveEvaluationID,
	})
	if id != "" {
		m.sessionSub = m.observe(m.dash.SessionQuery(id))
	}
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	width := max(20, m.chat.width-2)
	var blocks []string
	switch {
	case m.chat.sessionErr != nil:
		blocks = append(blocks, readErrorLine(m.chat.sessionErr, width))
	case m.appState.ActiveSessionID == "":
		blocks = append(blocks, chatMetaStyle.Render("Start a new conversation."))
	case m.chat.session == nil:
		blocks = append(blocks, chatMetaStyle.Render("Loading conversation…"))
	default:
		for _, msg := range m.chat.session.Messages {
			blocks = append(blocks, m.renderChatMessage(msg, width))
		}
	}
	m.chat.viewport.SetContent(strings.Join(blocks, "\n"))
	m.chat.viewport.GotoBottom()
}

func (m *Model) renderChatMessage(msg types.Message, width int) string {
	inner := max(10, width-4)
	var bubble string
	if msg.Role == types.MessageRoleUser {
		bubble = userBubbleStyle.Width(inner).Render(msg.Content)
	} else {
		bubble = agentBubbleStyle.Width(inner).Render(m.answers.render(msg.Content, inner-2))
	}
	meta := string(msg.Role)
	if msg.Timestamp != "" {
		meta += " · " + msg.Timestamp
	}
	if len(msg.Sources) > 0 {
		meta += " · sources: " + strings.Join(msg.Sources, ", ")
	}
	return chatMetaStyle.Render(truncateToWidth(meta, width)) + "\n" + bubble
}

func (m *Model) viewChat() string {
	sidebar := m.viewSessionList(m.sidebarWidth(), m.bodyHeight())
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.chat.viewport.View(),
		dividerStyle.Render(strings.Repeat("─", max(1, m.chat.width))),
		m.chat.input.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, dividerStyle.Render("│"), main)
}

func (m *Model) viewSessionList(width, height int) string {
	lines := []string{headerStyle.Render("Sessions")}
	switch {
	case m.chat.sessionsErr != nil && len(m.chat.sessions) == 0:
		lines = append(lines, readErrorLine(m.chat.sessionsErr, width))
	case m.chat.sessionsLoading:
		lines = append(lines, chatMetaStyle.Render("loading…"))
	case len(m.chat.sessions) == 0:
		lines = append(lines, chatMetaStyle.Render("no sessions yet"))
	}
	for i, s := range m.chat.sessions {
		if len(lines) >= height {
			break
		}
		label := truncateCell(firstLine(s.Title()), width-2)
		style := sessionStyle
		if s.SessionID == m.appState.ActiveSessionID {
			style = markedStyle
		}
		if i == m.chat.cursor {
			style = selectedStyle
		}
		lines = append(lines, style.Render(" "+label))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
