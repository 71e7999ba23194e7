package app

import (
	"strings"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

const (
	defaultAnswerWidth = 80
	maxRenderedAnswers = 256
)

type renderedAnswerKey struct {
	width   int
	content string
}

// answerRenderer draws assistant answers as terminal markdown. It is only
// used from the bubbletea loop. Output is kept per answer and width because
// every snapshot redraws the whole transcript.
type answerRenderer struct {
	dark     bool
	glamours map[int]*glamour.TermRenderer
	rendered map[renderedAnswerKey]string
}

func newAnswerRenderer(dark bool) *answerRenderer {
	return &answerRenderer{
		dark:     dark,
		glamours: map[int]*glamour.TermRenderer{},
		rendered: map[renderedAnswerKey]string{},
	}
}

// render returns the raw answer when glamour cannot handle it.
func (a *answerRenderer) render(answer string, width int) string {
	answer = strings.TrimRight(answer, "\n")
	if answer == "" {
		return ""
	}
	if width <= 0 {
		width = defaultAnswerWidth
	}
	key := renderedAnswerKey{width: width, content: answer}
	if out, ok := a.rendered[key]; ok {
		return out
	}
	tr := a.termRenderer(width)
	if tr == nil {
		return answer
	}
	out, err := tr.Render(answer)
	if err != nil {
		return answer
	}
	out = xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true)
	out = strings.TrimRight(out, "\n")
	if len(a.rendered) >= maxRenderedAnswers {
		clear(a.rendered)
	}
	a.rendered[key] = out
	return out
}

func (a *answerRenderer) termRenderer(width int) *glamour.TermRenderer {
	if tr, ok := a.glamours[width]; ok {
		return tr
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStyles(answerStyle(a.dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	a.glamours[width] = tr
	return tr
}

// answerStyle drops glamour's document margins; bubble padding comes from
// lipgloss. Quoted passages from retrieved documents render faint.
func answerStyle(dark bool) glamouransi.StyleConfig {
	cfg := styles.LightStyleConfig
	if dark {
		cfg = styles.DarkStyleConfig
	}
	noMargin := uint(0)
	cfg.Document.Margin = &noMargin
	cfg.Document.StylePrimitive.BlockPrefix = ""
	cfg.Document.StylePrimitive.BlockSuffix = ""
	quoteFaint, quoteColor := true, "245"
	cfg.BlockQuote.StylePrimitive.Faint = &quoteFaint
	cfg.BlockQuote.StylePrimitive.Color = &quoteColor
	return cfg
}
