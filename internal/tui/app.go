package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/powerbi"
)

// WorkspaceLoader fetches the workspaces shown in the workspace browser.
type WorkspaceLoader func(ctx context.Context) ([]powerbi.Workspace, error)

// AppLoader fetches the installed apps shown in the app browser.
type AppLoader func(ctx context.Context) ([]powerbi.App, error)

// Options wires the data sources into the TUI. The loaders are provided by
// the caller so caching policy stays out of this package.
type Options struct {
	// Profile is the active profile name, shown in the menu header.
	Profile string

	// Workspaces loads the rows for the workspace browser.
	Workspaces WorkspaceLoader

	// Apps loads the rows for the app browser.
	Apps AppLoader

	// Cache backs the cache browser.
	Cache *cache.Manager

	// Logger receives fetch failures and navigation events.
	Logger zerolog.Logger
}

// appState identifies which screen the root model is showing.
type appState int

const (
	// appStateMenu shows the top-level menu.
	appStateMenu appState = iota
	// appStateWorkspaces shows the workspace browser.
	appStateWorkspaces
	// appStateApps shows the app browser.
	appStateApps
	// appStateCache shows the cache browser.
	appStateCache
	// appStateQuitting indicates the application is exiting.
	appStateQuitting
)

// backMsg is sent by a browser when the user backs out to the menu.
type backMsg struct{}

// menuEntry is one selectable row of the top-level menu.
type menuEntry struct {
	title string
	desc  string
	state appState
}

// App is the root Bubble Tea model: a menu that routes into the workspace,
// app and cache browsers.
type App struct {
	ctx  context.Context
	opts Options

	state  appState
	cursor int
	menu   []menuEntry

	workspaces *WorkspacesModel
	apps       *AppsModel
	cache      *CacheModel

	width  int
	height int
}

// NewApp creates the root model. The context is handed to the loaders so
// fetches started from the TUI honor the caller's deadline.
func NewApp(ctx context.Context, opts Options) *App {
	return &App{
		ctx:   ctx,
		opts:  opts,
		state: appStateMenu,
		menu: []menuEntry{
			{title: "Workspaces", desc: "browse workspaces you can access", state: appStateWorkspaces},
			{title: "Apps", desc: "browse installed apps", state: appStateApps},
			{title: "Cache", desc: "inspect cached API responses", state: appStateCache},
		},
		width:  defaultWidth,
		height: defaultHeight,
	}
}

// Init implements tea.Model. The menu needs no initial commands.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Window sizes and back navigation are handled
// here; everything else goes to the active screen.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if winMsg, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = winMsg.Width
		a.height = winMsg.Height
		// Fall through so the active browser resizes too.
	}

	if _, ok := msg.(backMsg); ok {
		a.state = appStateMenu
		return a, nil
	}

	switch a.state {
	case appStateMenu:
		return a.updateMenu(msg)
	case appStateWorkspaces:
		_, cmd := a.workspaces.Update(msg)
		return a, cmd
	case appStateApps:
		_, cmd := a.apps.Update(msg)
		return a, cmd
	case appStateCache:
		_, cmd := a.cache.Update(msg)
		return a, cmd
	case appStateQuitting:
		return a, tea.Quit
	}

	return a, nil
}

// updateMenu handles input while the top-level menu is showing.
func (a *App) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}

	switch keyMsg.String() {
	case keyQuit, keyCtrlC, keyEsc:
		a.state = appStateQuitting
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	case "down", "j":
		if a.cursor < len(a.menu)-1 {
			a.cursor++
		}
		return a, nil
	case keyEnter:
		return a.openSelected()
	}

	return a, nil
}

// openSelected constructs the browser behind the highlighted menu entry and
// hands it the first fetch command. Browsers are rebuilt on every visit so
// re-entering a screen refreshes its data.
func (a *App) openSelected() (tea.Model, tea.Cmd) {
	entry := a.menu[a.cursor]
	a.opts.Logger.Debug().Str("screen", entry.title).Msg("opening screen")

	switch entry.state {
	case appStateWorkspaces:
		a.workspaces = NewWorkspacesModel(a.ctx, a.opts.Workspaces, a.opts.Logger)
		a.workspaces.setSize(a.width, a.height)
		a.state = appStateWorkspaces
		return a, a.workspaces.Init()
	case appStateApps:
		a.apps = NewAppsModel(a.ctx, a.opts.Apps, a.opts.Logger)
		a.apps.setSize(a.width, a.height)
		a.state = appStateApps
		return a, a.apps.Init()
	case appStateCache:
		a.cache = NewCacheModel(a.opts.Cache, a.opts.Logger)
		a.cache.setSize(a.width, a.height)
		a.state = appStateCache
		return a, a.cache.Init()
	case appStateMenu, appStateQuitting:
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	switch a.state {
	case appStateQuitting:
		return ""
	case appStateWorkspaces:
		return a.workspaces.View()
	case appStateApps:
		return a.apps.View()
	case appStateCache:
		return a.cache.View()
	case appStateMenu:
	}
	return a.renderMenu()
}

// renderMenu draws the top-level menu.
func (a *App) renderMenu() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("Power BI Explorer"))
	if a.opts.Profile != "" {
		sections = append(sections, SubtleStyle.Render("Profile: "+a.opts.Profile))
	}
	sections = append(sections, "")

	for i, entry := range a.menu {
		cursor := "  "
		// Pad before styling so ANSI escape codes do not skew the column.
		title := fmt.Sprintf("%-12s", entry.title)
		if i == a.cursor {
			cursor = "> "
			title = InfoStyle.Render(title)
		}
		sections = append(sections, cursor+title+" "+SubtleStyle.Render(entry.desc))
	}

	sections = append(sections, "")
	sections = append(sections, SubtleStyle.Render("Press enter to open, up/down to move, 'q' to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
