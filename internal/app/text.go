package app

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// truncateToWidth cuts styled text to width cells, keeping escape sequences
// intact.
func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	if xansi.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return xansi.Cut(text, 0, width-1) + "…"
}

// truncateCell cuts plain text to width cells.
func truncateCell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

func padCell(text string, width int) string {
	text = truncateCell(strings.TrimSpace(text), width)
	return runewidth.FillRight(text, width)
}
