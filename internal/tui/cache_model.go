package tui

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/rshade/pbicli/internal/cache"
)

// cacheState represents the current state of the cache browser.
type cacheState int

const (
	// cacheStateLoadingKeys indicates the key listing is in flight.
	cacheStateLoadingKeys cacheState = iota
	// cacheStateKeys shows the key table.
	cacheStateKeys
	// cacheStateLoadingVersions indicates the version listing is in flight.
	cacheStateLoadingVersions
	// cacheStateVersions shows the version table for the selected key.
	cacheStateVersions
	// cacheStateLoadingEntry indicates the entry read is in flight.
	cacheStateLoadingEntry
	// cacheStateEntry shows the entry detail view.
	cacheStateEntry
	// cacheStateDisabled indicates caching is turned off in the config.
	cacheStateDisabled
	// cacheStateError indicates a listing or read failed.
	cacheStateError
)

// cacheKeysLoadedMsg is sent when the key listing completes.
type cacheKeysLoadedMsg struct {
	keys []string
	err  error
}

// cacheVersionsLoadedMsg is sent when the version listing completes.
type cacheVersionsLoadedMsg struct {
	key      string
	versions []string
	err      error
}

// cacheEntryLoadedMsg is sent when the entry read completes.
type cacheEntryLoadedMsg struct {
	entry *cache.Entry
	err   error
}

// Column widths for the cache tables.
const (
	cacheKeyColWidth     = 40
	cacheVersionColWidth = 20
	cacheCreatedColWidth = 22
)

// CacheModel is the Bubble Tea model for the cache browser. It drills down
// from keys to versions to a single entry.
type CacheModel struct {
	manager *cache.Manager
	logger  zerolog.Logger

	state   cacheState
	loading *LoadingState
	err     error

	keys        []string
	selectedKey string
	versions    []string
	entry       *cache.Entry

	keysTable     table.Model
	versionsTable table.Model

	width  int
	height int
}

// NewCacheModel creates the cache browser. Init starts the key listing.
func NewCacheModel(manager *cache.Manager, logger zerolog.Logger) *CacheModel {
	return &CacheModel{
		manager: manager,
		logger:  logger,
		state:   cacheStateLoadingKeys,
		loading: NewLoadingState(),
		width:   defaultWidth,
		height:  defaultHeight,
	}
}

// setSize records the terminal dimensions before the first WindowSizeMsg.
func (m *CacheModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

// Init implements tea.Model.
func (m *CacheModel) Init() tea.Cmd {
	m.loading.SetMessage("Listing cache keys...")
	return tea.Batch(m.loading.Init(), m.loadKeysCmd())
}

// loadKeysCmd returns the command that lists the cache keys.
func (m *CacheModel) loadKeysCmd() tea.Cmd {
	// Capture references before the goroutine runs.
	mgr := m.manager
	return func() tea.Msg {
		keys, err := mgr.ListKeys()
		return cacheKeysLoadedMsg{keys: keys, err: err}
	}
}

// loadVersionsCmd returns the command that lists the versions of key.
func (m *CacheModel) loadVersionsCmd(key string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		versions, err := mgr.ListVersions(key)
		return cacheVersionsLoadedMsg{key: key, versions: versions, err: err}
	}
}

// loadEntryCmd returns the command that reads one entry.
func (m *CacheModel) loadEntryCmd(key, version string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		entry, err := mgr.Load(key, version)
		return cacheEntryLoadedMsg{entry: entry, err: err}
	}
}

// Update implements tea.Model.
func (m *CacheModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if winMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = winMsg.Width
		m.height = winMsg.Height
		m.rebuildKeysTable()
		m.rebuildVersionsTable()
		return m, nil
	}

	switch loadedMsg := msg.(type) {
	case cacheKeysLoadedMsg:
		return m.handleKeysLoaded(loadedMsg)
	case cacheVersionsLoadedMsg:
		return m.handleVersionsLoaded(loadedMsg)
	case cacheEntryLoadedMsg:
		return m.handleEntryLoaded(loadedMsg)
	}

	switch m.state {
	case cacheStateLoadingKeys, cacheStateLoadingVersions, cacheStateLoadingEntry:
		return m, m.loading.Update(msg)
	case cacheStateKeys:
		return m.handleKeysUpdate(msg)
	case cacheStateVersions:
		return m.handleVersionsUpdate(msg)
	case cacheStateEntry:
		return m.handleEntryUpdate(msg)
	case cacheStateDisabled, cacheStateError:
		return m.handleErrorUpdate(msg)
	}

	return m, nil
}

// handleKeysLoaded applies the key listing result.
func (m *CacheModel) handleKeysLoaded(msg cacheKeysLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, cache.ErrCacheDisabled) {
			m.state = cacheStateDisabled
			return m, nil
		}
		m.logger.Warn().Err(msg.err).Msg("cache key listing failed")
		m.err = msg.err
		m.state = cacheStateError
		return m, nil
	}
	keys := append([]string(nil), msg.keys...)
	sort.Strings(keys)
	m.keys = keys
	m.state = cacheStateKeys
	m.rebuildKeysTable()
	return m, nil
}

// handleVersionsLoaded applies the version listing result.
func (m *CacheModel) handleVersionsLoaded(msg cacheVersionsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Str("key", msg.key).Msg("cache version listing failed")
		m.err = msg.err
		m.state = cacheStateError
		return m, nil
	}
	// ListVersions returns oldest first, show newest first.
	versions := make([]string, 0, len(msg.versions))
	for i := len(msg.versions) - 1; i >= 0; i-- {
		versions = append(versions, msg.versions[i])
	}
	m.selectedKey = msg.key
	m.versions = versions
	m.state = cacheStateVersions
	m.rebuildVersionsTable()
	return m, nil
}

// handleEntryLoaded applies the entry read result.
func (m *CacheModel) handleEntryLoaded(msg cacheEntryLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Str("key", m.selectedKey).Msg("cache entry read failed")
		m.err = msg.err
		m.state = cacheStateError
		return m, nil
	}
	m.entry = msg.entry
	m.state = cacheStateEntry
	return m, nil
}

// handleKeysUpdate handles keys while the key table is showing.
func (m *CacheModel) handleKeysUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyReload:
			m.state = cacheStateLoadingKeys
			m.loading.SetMessage("Listing cache keys...")
			return m, tea.Batch(m.loading.Init(), m.loadKeysCmd())
		case keyEsc:
			return m, func() tea.Msg { return backMsg{} }
		case keyEnter:
			row := m.keysTable.SelectedRow()
			if len(row) == 0 {
				return m, nil
			}
			key := row[0]
			m.state = cacheStateLoadingVersions
			m.loading.SetMessage("Listing versions of " + key + "...")
			return m, tea.Batch(m.loading.Init(), m.loadVersionsCmd(key))
		}
	}

	var cmd tea.Cmd
	m.keysTable, cmd = m.keysTable.Update(msg)
	return m, cmd
}

// handleVersionsUpdate handles keys while the version table is showing.
func (m *CacheModel) handleVersionsUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyEsc:
			m.state = cacheStateKeys
			return m, nil
		case keyEnter:
			row := m.versionsTable.SelectedRow()
			if len(row) == 0 {
				return m, nil
			}
			version := row[0]
			m.state = cacheStateLoadingEntry
			m.loading.SetMessage("Reading entry...")
			return m, tea.Batch(m.loading.Init(), m.loadEntryCmd(m.selectedKey, version))
		}
	}

	var cmd tea.Cmd
	m.versionsTable, cmd = m.versionsTable.Update(msg)
	return m, cmd
}

// handleEntryUpdate handles keys while the entry detail is showing.
func (m *CacheModel) handleEntryUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyEsc:
			m.entry = nil
			m.state = cacheStateVersions
			return m, nil
		}
	}
	return m, nil
}

// handleErrorUpdate handles keys on the disabled and error screens.
func (m *CacheModel) handleErrorUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyReload:
			m.state = cacheStateLoadingKeys
			m.loading.SetMessage("Listing cache keys...")
			return m, tea.Batch(m.loading.Init(), m.loadKeysCmd())
		case keyEsc:
			return m, func() tea.Msg { return backMsg{} }
		}
	}
	return m, nil
}

// rebuildKeysTable recreates the key table from the current keys.
func (m *CacheModel) rebuildKeysTable() {
	keyWidth := m.width - borderPadding
	if keyWidth < cacheKeyColWidth {
		keyWidth = cacheKeyColWidth
	}

	columns := []table.Column{
		{Title: "KEY", Width: keyWidth},
	}

	rows := make([]table.Row, 0, len(m.keys))
	for _, key := range m.keys {
		rows = append(rows, table.Row{key})
	}

	m.keysTable = newCacheTable(columns, rows, m.height)
}

// rebuildVersionsTable recreates the version table for the selected key.
func (m *CacheModel) rebuildVersionsTable() {
	columns := []table.Column{
		{Title: "VERSION", Width: cacheVersionColWidth},
		{Title: "CREATED", Width: cacheCreatedColWidth},
	}

	rows := make([]table.Row, 0, len(m.versions))
	for _, version := range m.versions {
		created := ""
		if t, err := cache.ParseVersion(version); err == nil {
			created = t.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, table.Row{version, created})
	}

	m.versionsTable = newCacheTable(columns, rows, m.height)
}

// newCacheTable builds a focused table with the shared styles.
func newCacheTable(columns []table.Column, rows []table.Row, screenHeight int) table.Model {
	height := screenHeight - tableChromeHeight
	if height < 3 {
		height = 3
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}

// View implements tea.Model.
func (m *CacheModel) View() string {
	switch m.state {
	case cacheStateLoadingKeys, cacheStateLoadingVersions, cacheStateLoadingEntry:
		return RenderLoading(m.loading)
	case cacheStateDisabled:
		return lipgloss.JoinVertical(lipgloss.Left,
			WarningStyle.Render("Caching is disabled"),
			ValueStyle.Render("Enable it with 'pbicli config set cache.enabled true'."),
			"",
			SubtleStyle.Render("Press ESC to return"),
		)
	case cacheStateError:
		return renderBrowserError("cache", m.err)
	case cacheStateKeys:
		return m.renderKeysView()
	case cacheStateVersions:
		return m.renderVersionsView()
	case cacheStateEntry:
		return m.renderEntryView()
	}
	return ""
}

// renderKeysView renders the key table.
func (m *CacheModel) renderKeysView() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("Cache"))
	if len(m.keys) == 0 {
		sections = append(sections, "")
		sections = append(sections, ValueStyle.Render("The cache is empty."))
		sections = append(sections, "")
		sections = append(sections, SubtleStyle.Render("Press ESC to return"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.keysTable.View())
	status := fmt.Sprintf("%d keys | Press enter for versions, 'r' to reload, esc for menu, 'q' to quit", len(m.keys))
	sections = append(sections, SubtleStyle.Render(status))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderVersionsView renders the version table for the selected key.
func (m *CacheModel) renderVersionsView() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("Cache: "+m.selectedKey))
	sections = append(sections, m.versionsTable.View())
	status := fmt.Sprintf("%d versions, newest first | Press enter to inspect, esc for keys, 'q' to quit",
		len(m.versions))
	sections = append(sections, SubtleStyle.Render(status))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderEntryView renders the detail view for one cache entry.
func (m *CacheModel) renderEntryView() string {
	if m.entry == nil {
		return ""
	}

	var content []string
	content = append(content, renderEntryField("Key", m.entry.CacheKey))
	content = append(content, renderEntryField("Version", m.entry.Version))
	content = append(content, renderEntryField("Cached at", m.entry.CachedAt.Format("2006-01-02 15:04:05")))
	content = append(content, renderEntryField("Age", m.entry.Age().Round(time.Second).String()))
	content = append(content, renderEntryField("Size", fmt.Sprintf("%d bytes", len(m.entry.Data))))

	if len(m.entry.Metadata) > 0 {
		content = append(content, "")
		content = append(content, LabelStyle.Render("Metadata"))
		names := make([]string, 0, len(m.entry.Metadata))
		for name := range m.entry.Metadata {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			content = append(content, renderEntryField(name, fmt.Sprintf("%v", m.entry.Metadata[name])))
		}
	}

	box := BoxStyle.Width(m.width - borderPadding).Render(lipgloss.JoinVertical(lipgloss.Left, content...))

	return lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Render("Cache entry"),
		box,
		SubtleStyle.Render("Press ESC to return"),
	)
}

// renderEntryField renders one label/value line of the entry detail.
func renderEntryField(label, value string) string {
	return LabelStyle.Render(fmt.Sprintf("%-12s", label)) + " " + ValueStyle.Render(value)
}
