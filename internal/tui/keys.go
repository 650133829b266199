package tui

// Key strings as reported by tea.KeyMsg.String().
const (
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
	keyEnter  = "enter"
	keyEsc    = "esc"
	keySlash  = "/"
	keyReload = "r"
)

// Fallback dimensions used until the first tea.WindowSizeMsg arrives.
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Vertical space consumed by the title, status line, help line and padding
// around a table. Subtracted from the terminal height to size tables.
const tableChromeHeight = 6

// borderPadding accounts for the left and right border cells of BoxStyle.
const borderPadding = 2
