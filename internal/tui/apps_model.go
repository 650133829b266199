package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/rshade/pbicli/internal/powerbi"
)

// appsState represents the current state of the app browser.
type appsState int

const (
	// appsStateLoading indicates the fetch is in flight.
	appsStateLoading appsState = iota
	// appsStateBrowsing indicates the table is showing.
	appsStateBrowsing
	// appsStateError indicates the fetch failed.
	appsStateError
)

// appsLoadedMsg is sent when the app fetch completes.
type appsLoadedMsg struct {
	apps []powerbi.App
	err  error
}

// Column widths for the app table. NAME absorbs the remaining width.
const (
	appIDColWidth        = 36
	appPublisherColWidth = 20
	appUpdatedColWidth   = 16
)

// AppsModel is the Bubble Tea model for the app browser.
type AppsModel struct {
	ctx    context.Context
	loader AppLoader
	logger zerolog.Logger

	state   appsState
	loading *LoadingState
	err     error

	all     []powerbi.App
	visible []powerbi.App

	table      table.Model
	textInput  textinput.Model
	showFilter bool

	width  int
	height int
}

// NewAppsModel creates the app browser. Init starts the fetch.
func NewAppsModel(ctx context.Context, loader AppLoader, logger zerolog.Logger) *AppsModel {
	return &AppsModel{
		ctx:       ctx,
		loader:    loader,
		logger:    logger,
		state:     appsStateLoading,
		loading:   NewLoadingState(),
		textInput: newTextInput(),
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

// setSize records the terminal dimensions before the first WindowSizeMsg.
func (m *AppsModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

// Init implements tea.Model.
func (m *AppsModel) Init() tea.Cmd {
	m.loading.SetMessage("Loading apps...")
	return tea.Batch(m.loading.Init(), m.fetchCmd())
}

// fetchCmd returns the command that runs the loader.
func (m *AppsModel) fetchCmd() tea.Cmd {
	// Capture references before the goroutine runs.
	ctx := m.ctx
	loader := m.loader
	return func() tea.Msg {
		apps, err := loader(ctx)
		return appsLoadedMsg{apps: apps, err: err}
	}
}

// Update implements tea.Model.
func (m *AppsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if winMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = winMsg.Width
		m.height = winMsg.Height
		m.rebuildTable()
		return m, nil
	}

	if loadedMsg, ok := msg.(appsLoadedMsg); ok {
		return m.handleLoaded(loadedMsg)
	}

	if m.showFilter {
		return m.handleFilterInput(msg)
	}

	switch m.state {
	case appsStateLoading:
		return m, m.loading.Update(msg)
	case appsStateBrowsing:
		return m.handleBrowsingUpdate(msg)
	case appsStateError:
		return m.handleErrorUpdate(msg)
	}

	return m, nil
}

// handleLoaded applies the fetch result.
func (m *AppsModel) handleLoaded(msg appsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Msg("app fetch failed")
		m.err = msg.err
		m.state = appsStateError
		return m, nil
	}
	m.all = msg.apps
	m.visible = msg.apps
	m.state = appsStateBrowsing
	m.rebuildTable()
	return m, nil
}

// handleFilterInput routes keys to the filter text input.
func (m *AppsModel) handleFilterInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyEnter, keyEsc:
			m.showFilter = false
			m.textInput.Blur()
			m.applyFilter()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// handleBrowsingUpdate handles keys while the table is showing.
func (m *AppsModel) handleBrowsingUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keySlash:
			m.showFilter = true
			m.textInput.Focus()
			return m, nil
		case keyReload:
			m.state = appsStateLoading
			return m, tea.Batch(m.loading.Init(), m.fetchCmd())
		case keyEsc:
			if m.textInput.Value() != "" {
				m.textInput.SetValue("")
				m.applyFilter()
				return m, nil
			}
			return m, func() tea.Msg { return backMsg{} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// handleErrorUpdate handles keys on the error screen.
func (m *AppsModel) handleErrorUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyReload:
			m.state = appsStateLoading
			return m, tea.Batch(m.loading.Init(), m.fetchCmd())
		case keyEsc:
			return m, func() tea.Msg { return backMsg{} }
		}
	}
	return m, nil
}

// applyFilter narrows the visible rows to those matching the filter text.
func (m *AppsModel) applyFilter() {
	val := m.textInput.Value()
	if val == "" {
		m.visible = m.all
	} else {
		var filtered []powerbi.App
		query := strings.ToLower(val)
		for _, app := range m.all {
			if strings.Contains(strings.ToLower(app.Name), query) ||
				strings.Contains(strings.ToLower(app.ID), query) ||
				strings.Contains(strings.ToLower(app.PublishedBy), query) {
				filtered = append(filtered, app)
			}
		}
		m.visible = filtered
	}
	m.rebuildTable()
}

// rebuildTable recreates the table from the visible rows.
func (m *AppsModel) rebuildTable() {
	nameWidth := m.width - appIDColWidth - appPublisherColWidth - appUpdatedColWidth - borderPadding
	if nameWidth < minNameColWidth {
		nameWidth = minNameColWidth
	}

	columns := []table.Column{
		{Title: "NAME", Width: nameWidth},
		{Title: "ID", Width: appIDColWidth},
		{Title: "PUBLISHED BY", Width: appPublisherColWidth},
		{Title: "LAST UPDATE", Width: appUpdatedColWidth},
	}

	rows := make([]table.Row, 0, len(m.visible))
	for _, app := range m.visible {
		updated := ""
		if !app.LastUpdate.IsZero() {
			updated = app.LastUpdate.Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{app.Name, app.ID, app.PublishedBy, updated})
	}

	height := m.height - tableChromeHeight
	if height < 3 {
		height = 3
	}

	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	m.table.SetStyles(s)
}

// View implements tea.Model.
func (m *AppsModel) View() string {
	switch m.state {
	case appsStateLoading:
		return RenderLoading(m.loading)
	case appsStateError:
		return renderBrowserError("apps", m.err)
	case appsStateBrowsing:
	}
	return m.renderBrowsingView()
}

// renderBrowsingView renders the table with the status bar and filter row.
func (m *AppsModel) renderBrowsingView() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("Apps"))
	sections = append(sections, m.table.View())
	sections = append(sections, m.renderStatusBar())

	if m.showFilter {
		filterView := LabelStyle.Render("Filter: ") + m.textInput.View()
		sections = append(sections, filterView)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar displays the row count and key hints.
func (m *AppsModel) renderStatusBar() string {
	filterStatus := ""
	if m.textInput.Value() != "" {
		filterStatus = fmt.Sprintf(" | Filtered: %d/%d", len(m.visible), len(m.all))
	}
	status := fmt.Sprintf("%d apps%s | Press '/' to filter, 'r' to reload, esc for menu, 'q' to quit",
		len(m.visible), filterStatus)
	return SubtleStyle.Render(status)
}
