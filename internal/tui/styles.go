package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the TUI, loosely following the Power BI brand colors.
const (
	// ColorPrimary is the Power BI yellow used for headers and highlights.
	ColorPrimary = "#F2C811"
	// ColorAccent is the deep blue used for selected rows.
	ColorAccent = "#00188F"
	// ColorSubtle is a muted gray for hints and secondary text.
	ColorSubtle = "#6C6C6C"
	// ColorWarning flags degraded but recoverable conditions.
	ColorWarning = "#FFA500"
	// ColorCritical flags errors.
	ColorCritical = "#FF4136"
)

// Shared lipgloss styles. Defined once so every view renders consistently.
//
//nolint:gochecknoglobals // lipgloss styles are immutable render config
var (
	// HeaderStyle renders view titles.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary))

	// InfoStyle renders status lines under the title.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorPrimary))

	// LabelStyle renders field names in detail views.
	LabelStyle = lipgloss.NewStyle().
			Bold(true)

	// ValueStyle renders field values in detail views.
	ValueStyle = lipgloss.NewStyle()

	// SubtleStyle renders key hints and other secondary text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSubtle))

	// WarningStyle renders non-fatal notices.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning))

	// CriticalStyle renders errors.
	CriticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorCritical))

	// BoxStyle wraps detail content in a rounded border.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorSubtle)).
			Padding(0, 1)

	// TableHeaderStyle is applied to bubbles table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color(ColorPrimary)).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color(ColorSubtle)).
				BorderBottom(true)

	// TableSelectedStyle is applied to the selected bubbles table row.
	TableSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color(ColorPrimary)).
				Background(lipgloss.Color(ColorAccent))
)
