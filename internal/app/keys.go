package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Quit    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Retry   key.Binding
	Dismiss key.Binding

	Submit     key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	NewChat    key.Binding
	CopyAnswer key.Binding

	ToggleEnhancer key.Binding
	ToggleRerank   key.Binding
	CyclePipeline  key.Binding
	TopKDown       key.Binding
	TopKUp         key.Binding

	TogglePDF   key.Binding
	ToggleJSON  key.Binding
	PrevJob     key.Binding
	NextJob     key.Binding
	CycleFolder key.Binding

	ToggleCompare   key.Binding
	QuestionsDown   key.Binding
	QuestionsUp     key.Binding
	ReuseQuestions  key.Binding
	WatchEvaluation key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Retry:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Dismiss: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),

		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Up:         key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "new chat")),
		CopyAnswer: key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy answer")),

		ToggleEnhancer: key.NewBinding(key.WithKeys("alt+e"), key.WithHelp("alt+e", "enhancer")),
		ToggleRerank:   key.NewBinding(key.WithKeys("alt+r"), key.WithHelp("alt+r", "rerank")),
		CyclePipeline:  key.NewBinding(key.WithKeys("alt+p"), key.WithHelp("alt+p", "pipeline")),
		TopKDown:       key.NewBinding(key.WithKeys("alt+[", "["), key.WithHelp("[", "top_k -")),
		TopKUp:         key.NewBinding(key.WithKeys("alt+]", "]"), key.WithHelp("]", "top_k +")),

		TogglePDF:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pdf")),
		ToggleJSON:  key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "json")),
		PrevJob:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev job")),
		NextJob:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next job")),
		CycleFolder: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "folder")),

		ToggleCompare:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "compare")),
		QuestionsDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "questions -")),
		QuestionsUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "questions +")),
		ReuseQuestions:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "reuse questions")),
		WatchEvaluation: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch")),
	}
}

func (k keyMap) forTab(t tab) []key.Binding {
	common := []key.Binding{k.NextTab, k.Quit}
	var local []key.Binding
	switch t {
	case tabRetrieval:
		local = []key.Binding{k.Submit, k.ToggleEnhancer, k.ToggleRerank, k.CyclePipeline, k.TopKDown, k.TopKUp}
	case tabIngestion:
		local = []key.Binding{k.Submit, k.Up, k.Down, k.TogglePDF, k.ToggleJSON, k.CyclePipeline, k.PrevJob, k.NextJob}
	case tabEvaluation:
		local = []key.Binding{k.Submit, k.Up, k.Down, k.ToggleCompare, k.CycleFolder, k.TopKDown, k.TopKUp,
			k.QuestionsDown, k.QuestionsUp, k.ToggleEnhancer, k.ToggleRerank, k.ReuseQuestions, k.WatchEvaluation}
	default:
		local = []key.Binding{k.Submit, k.Up, k.Down, k.NewChat, k.CopyAnswer, k.PageUp, k.PageDown}
	}
	return append(local, common...)
}

func keyMatches(msg tea.KeyMsg, binding key.Binding) bool {
	return key.Matches(msg, binding)
}
