package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderBrowserError renders a fetch failure with retry hints.
func renderBrowserError(what string, err error) string {
	var sections []string

	sections = append(sections, CriticalStyle.Render(fmt.Sprintf("Error loading %s", what)))
	if err != nil {
		sections = append(sections, ValueStyle.Render(err.Error()))
	}
	sections = append(sections, "")
	sections = append(sections, SubtleStyle.Render("Press 'r' to retry, esc for menu, 'q' to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
