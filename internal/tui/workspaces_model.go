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

// workspacesState represents the current state of the workspace browser.
type workspacesState int

const (
	// workspacesStateLoading indicates the fetch is in flight.
	workspacesStateLoading workspacesState = iota
	// workspacesStateBrowsing indicates the table is showing.
	workspacesStateBrowsing
	// workspacesStateError indicates the fetch failed.
	workspacesStateError
)

// workspacesLoadedMsg is sent when the workspace fetch completes.
type workspacesLoadedMsg struct {
	workspaces []powerbi.Workspace
	err        error
}

// Column widths for the workspace table. NAME absorbs the remaining width.
const (
	workspaceIDColWidth    = 36
	workspaceTypeColWidth  = 12
	workspaceStateColWidth = 10
	minNameColWidth        = 20
)

// WorkspacesModel is the Bubble Tea model for the workspace browser.
type WorkspacesModel struct {
	ctx    context.Context
	loader WorkspaceLoader
	logger zerolog.Logger

	state   workspacesState
	loading *LoadingState
	err     error

	all     []powerbi.Workspace
	visible []powerbi.Workspace

	table      table.Model
	textInput  textinput.Model
	showFilter bool

	width  int
	height int
}

// NewWorkspacesModel creates the workspace browser. Init starts the fetch.
func NewWorkspacesModel(ctx context.Context, loader WorkspaceLoader, logger zerolog.Logger) *WorkspacesModel {
	return &WorkspacesModel{
		ctx:       ctx,
		loader:    loader,
		logger:    logger,
		state:     workspacesStateLoading,
		loading:   NewLoadingState(),
		textInput: newTextInput(),
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

// setSize records the terminal dimensions before the first WindowSizeMsg.
func (m *WorkspacesModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

// Init implements tea.Model.
func (m *WorkspacesModel) Init() tea.Cmd {
	m.loading.SetMessage("Loading workspaces...")
	return tea.Batch(m.loading.Init(), m.fetchCmd())
}

// fetchCmd returns the command that runs the loader.
func (m *WorkspacesModel) fetchCmd() tea.Cmd {
	// Capture references before the goroutine runs.
	ctx := m.ctx
	loader := m.loader
	return func() tea.Msg {
		workspaces, err := loader(ctx)
		return workspacesLoadedMsg{workspaces: workspaces, err: err}
	}
}

// Update implements tea.Model.
func (m *WorkspacesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if winMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = winMsg.Width
		m.height = winMsg.Height
		m.rebuildTable()
		return m, nil
	}

	if loadedMsg, ok := msg.(workspacesLoadedMsg); ok {
		return m.handleLoaded(loadedMsg)
	}

	if m.showFilter {
		return m.handleFilterInput(msg)
	}

	switch m.state {
	case workspacesStateLoading:
		return m, m.loading.Update(msg)
	case workspacesStateBrowsing:
		return m.handleBrowsingUpdate(msg)
	case workspacesStateError:
		return m.handleErrorUpdate(msg)
	}

	return m, nil
}

// handleLoaded applies the fetch result.
func (m *WorkspacesModel) handleLoaded(msg workspacesLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Msg("workspace fetch failed")
		m.err = msg.err
		m.state = workspacesStateError
		return m, nil
	}
	m.all = msg.workspaces
	m.visible = msg.workspaces
	m.state = workspacesStateBrowsing
	m.rebuildTable()
	return m, nil
}

// handleFilterInput routes keys to the filter text input.
func (m *WorkspacesModel) handleFilterInput(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m *WorkspacesModel) handleBrowsingUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keySlash:
			m.showFilter = true
			m.textInput.Focus()
			return m, nil
		case keyReload:
			m.state = workspacesStateLoading
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
func (m *WorkspacesModel) handleErrorUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyReload:
			m.state = workspacesStateLoading
			return m, tea.Batch(m.loading.Init(), m.fetchCmd())
		case keyEsc:
			return m, func() tea.Msg { return backMsg{} }
		}
	}
	return m, nil
}

// applyFilter narrows the visible rows to those matching the filter text.
func (m *WorkspacesModel) applyFilter() {
	val := m.textInput.Value()
	if val == "" {
		m.visible = m.all
	} else {
		var filtered []powerbi.Workspace
		query := strings.ToLower(val)
		for _, ws := range m.all {
			if strings.Contains(strings.ToLower(ws.Name), query) ||
				strings.Contains(strings.ToLower(ws.ID), query) ||
				strings.Contains(strings.ToLower(ws.Type), query) {
				filtered = append(filtered, ws)
			}
		}
		m.visible = filtered
	}
	m.rebuildTable()
}

// rebuildTable recreates the table from the visible rows.
func (m *WorkspacesModel) rebuildTable() {
	nameWidth := m.width - workspaceIDColWidth - workspaceTypeColWidth - workspaceStateColWidth - borderPadding
	if nameWidth < minNameColWidth {
		nameWidth = minNameColWidth
	}

	columns := []table.Column{
		{Title: "NAME", Width: nameWidth},
		{Title: "ID", Width: workspaceIDColWidth},
		{Title: "TYPE", Width: workspaceTypeColWidth},
		{Title: "STATE", Width: workspaceStateColWidth},
	}

	rows := make([]table.Row, 0, len(m.visible))
	for _, ws := range m.visible {
		rows = append(rows, table.Row{ws.Name, ws.ID, ws.Type, ws.State})
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
func (m *WorkspacesModel) View() string {
	switch m.state {
	case workspacesStateLoading:
		return RenderLoading(m.loading)
	case workspacesStateError:
		return renderBrowserError("workspaces", m.err)
	case workspacesStateBrowsing:
	}
	return m.renderBrowsingView()
}

// renderBrowsingView renders the table with the status bar and filter row.
func (m *WorkspacesModel) renderBrowsingView() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("Workspaces"))
	sections = append(sections, m.table.View())
	sections = append(sections, m.renderStatusBar())

	if m.showFilter {
		filterView := LabelStyle.Render("Filter: ") + m.textInput.View()
		sections = append(sections, filterView)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar displays the row count and key hints.
func (m *WorkspacesModel) renderStatusBar() string {
	filterStatus := ""
	if m.textInput.Value() != "" {
		filterStatus = fmt.Sprintf(" | Filtered: %d/%d", len(m.visible), len(m.all))
	}
	status := fmt.Sprintf("%d workspaces%s | Press '/' to filter, 'r' to reload, esc for menu, 'q' to quit",
		len(m.visible), filterStatus)
	return SubtleStyle.Render(status)
}
