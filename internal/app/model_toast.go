package app

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type toastLevel int

const (
	toastLevelInfo toastLevel = iota
	toastLevelSuccess
	toastLevelError
)

type toast struct {
	text  string
	level toastLevel
	until time.Time
	seq   int
}

func (t *toast) clear() {
	t.text = ""
	t.level = toastLevelInfo
	t.until = time.Time{}
}

func (t toast) active(at time.Time) bool {
	if strings.TrimSpace(t.text) == "" {
		return false
	}
	if t.until.IsZero() {
		return true
	}
	return at.Before(t.until)
}

// showToast replaces the current toast and returns the command that expires
// it. An older expiry never clears a newer toast.
func (m *Model) showToast(level toastLevel, message string) tea.Cmd {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	m.toast.seq++
	m.toast.text = message
	m.toast.level = level
	m.toast.until = time.Now().Add(toastDuration)
	seq := m.toast.seq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m *Model) toastLine(width int) string {
	if !m.toast.active(time.Now()) || width <= 0 {
		return ""
	}
	maxTextWidth := max(1, width-4)
	text := truncateToWidth(m.toast.text, maxTextWidth)
	pill := m.toastStyle().Render(" " + text + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) toastStyle() lipgloss.Style {
	switch m.toast.level {
	case toastLevelSuccess:
		return toastSuccessStyle
	case toastLevelError:
		return toastErrorStyle
	default:
		return toastInfoStyle
	}
}
