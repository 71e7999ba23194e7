package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ragdash/internal/dashboard"
	"ragdash/internal/types"
)

type retrievalTab struct {
	input  textinput.Model
	form   dashboard.RetrievalForm
	result *types.RetrievalResponse
	err    error
}

func newRetrievalTab() retrievalTab {
	input := textinput.New()
	input.Placeholder = "Search query"
	input.Prompt = "? "
	return retrievalTab{input: input, form: dashboard.DefaultRetrievalForm()}
}

func (m *Model) updateRetrieval(msg tea.KeyMsg) tea.Cmd {
	form := &m.retrieval.form
	switch {
	case keyMatches(msg, m.keys.Submit):
		form.Query = m.retrieval.input.Value()
		req, err := form.Request()
		if err != nil {
			m.status = err.Error()
			return nil
		}
		return tea.Batch(m.retrieveCmd(req), m.spinner.Tick)
	case keyMatches(msg, m.keys.ToggleEnhancer):
		form.UseQueryEnhancer = !form.UseQueryEnhancer
		return nil
	case keyMatches(msg, m.keys.ToggleRerank):
		form.UseReranking = !form.UseReranking
		return nil
	case keyMatches(msg, m.keys.CyclePipeline):
		form.Pipeline = nextPipeline(form.Pipeline)
		return nil
	case keyMatches(msg, m.keys.TopKDown):
		form.TopK = max(dashboard.MinTopK, form.TopK-1)
		return nil
	case keyMatches(msg, m.keys.TopKUp):
		form.TopK = min(dashboard.MaxTopK, form.TopK+1)
		return nil
	}
	var cmd tea.Cmd
	m.retrieval.input, cmd = m.retrieval.input.Update(msg)
	return cmd
}

func (m *Model) retrieveCmd(req types.RetrievalRequest) tea.Cmd {
	retrieve := m.dash.Retrieve
	ctx := m.ctx
	return func() tea.Msg {
		resp, err := retrieve.Run(ctx, req)
		return retrieveDoneMsg{resp: resp, err: err}
	}
}

func (m *Model) onRetrieveDone(msg retrieveDoneMsg) {
	m.retrieval.err = msg.err
	if msg.err == nil {
		m.retrieval.result = msg.resp
	}
}

func nextPipeline(p types.PipelineType) types.PipelineType {
	if p == types.PipelineSemantic {
		return types.PipelineRecursiveOverlap
	}
	return types.PipelineSemantic
}

func (m *Model) viewRetrieval() string {
	form := m.retrieval.form
	lines := []string{
		headerStyle.Render("Retrieval"),
		m.retrieval.input.View(),
		statusStyle.Render(fmt.Sprintf("top_k %d · enhancer %s · rerank %s · pipeline %s",
			form.TopK, onOff(form.UseQueryEnhancer), onOff(form.UseReranking), form.Pipeline)),
		"",
	}
	width := max(20, m.width-2)
	switch {
	case m.retrieval.err != nil:
		lines = append(lines, errorTextStyle.Render(m.retrieval.err.Error()))
	case m.retrieval.result == nil:
		lines = append(lines, chatMetaStyle.Render("Run a query to see matching chunks."))
	case len(m.retrieval.result.Documents) == 0:
		lines = append(lines, chatMetaStyle.Render("No documents matched."))
	default:
		res := m.retrieval.result
		lines = append(lines, statusStyle.Render(fmt.Sprintf("%d results for %q", res.TotalRetrieved, res.Query)))
		for i, doc := range res.Documents {
			head := fmt.Sprintf("%d. %s  score %s", i+1, doc.Source, dashboard.FormatScore(doc.Score))
			lines = append(lines, activityStyle.Render(truncateToWidth(head, width)))
			for _, line := range strings.Split(strings.TrimSpace(doc.Text), "\n") {
				lines = append(lines, "   "+truncateCell(line, width-3))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
