package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/pbicli/internal/powerbi"
)

func testWorkspaces() []powerbi.Workspace {
	return []powerbi.Workspace{
		{ID: "ws-1", Name: "Marketing", Type: "Workspace", State: "Active"},
		{ID: "ws-2", Name: "Finance", Type: "Workspace", State: "Active"},
		{ID: "ws-3", Name: "Sales", Type: "PersonalGroup", State: "Active"},
	}
}

// TestNewWorkspacesModel verifies initial model state.
func TestNewWorkspacesModel(t *testing.T) {
	loader := func(_ context.Context) ([]powerbi.Workspace, error) {
		return testWorkspaces(), nil
	}

	model := NewWorkspacesModel(context.Background(), loader, zerolog.Nop())

	assert.Equal(t, workspacesStateLoading, model.state)
	assert.NotNil(t, model.Init())
}

// TestWorkspacesModel_FetchCmd verifies the fetch command wraps the loader.
func TestWorkspacesModel_FetchCmd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		loader := func(_ context.Context) ([]powerbi.Workspace, error) {
			return testWorkspaces(), nil
		}
		model := NewWorkspacesModel(context.Background(), loader, zerolog.Nop())

		msg := model.fetchCmd()()

		loaded, ok := msg.(workspacesLoadedMsg)
		require.True(t, ok)
		require.NoError(t, loaded.err)
		assert.Len(t, loaded.workspaces, 3)
	})

	t.Run("error", func(t *testing.T) {
		loader := func(_ context.Context) ([]powerbi.Workspace, error) {
			return nil, errors.New("boom")
		}
		model := NewWorkspacesModel(context.Background(), loader, zerolog.Nop())

		msg := model.fetchCmd()()

		loaded, ok := msg.(workspacesLoadedMsg)
		require.True(t, ok)
		assert.Error(t, loaded.err)
	})
}

// TestWorkspacesModel_LoadedTransition verifies loading -> browsing.
func TestWorkspacesModel_LoadedTransition(t *testing.T) {
	model := NewWorkspacesModel(context.Background(), nil, zerolog.Nop())

	model.Update(workspacesLoadedMsg{workspaces: testWorkspaces()})

	assert.Equal(t, workspacesStateBrowsing, model.state)
	view := model.View()
	assert.Contains(t, view, "Marketing")
	assert.Contains(t, view, "Finance")
	assert.Contains(t, view, "3 workspaces")
}

// TestWorkspacesModel_LoadError verifies loading -> error.
func TestWorkspacesModel_LoadError(t *testing.T) {
	model := NewWorkspacesModel(context.Background(), nil, zerolog.Nop())

	model.Update(workspacesLoadedMsg{err: errors.New("401 unauthorized")})

	assert.Equal(t, workspacesStateError, model.state)
	view := model.View()
	assert.Contains(t, view, "Error loading workspaces")
	assert.Contains(t, view, "401 unauthorized")
}

// TestWorkspacesModel_FilterMode verifies filter entry, matching and exit.
func TestWorkspacesModel_FilterMode(t *testing.T) {
	model := NewWorkspacesModel(context.Background(), nil, zerolog.Nop())
	model.Update(workspacesLoadedMsg{workspaces: testWorkspaces()})

	// Enter filter mode
	slashMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}}
	model.Update(slashMsg)
	assert.True(t, model.showFilter)

	// Type a query
	typeMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("mark")}
	model.Update(typeMsg)

	// Confirm with enter
	enterMsg := tea.KeyMsg{Type: tea.KeyEnter}
	model.Update(enterMsg)

	assert.False(t, model.showFilter)
	require.Len(t, model.visible, 1)
	assert.Equal(t, "Marketing", model.visible[0].Name)
	assert.Contains(t, model.View(), "Filtered: 1/3")
}

// TestWorkspacesModel_EscClearsFilterThenBacksOut verifies the two-stage esc.
func TestWorkspacesModel_EscClearsFilterThenBacksOut(t *testing.T) {
	model := NewWorkspacesModel(context.Background(), nil, zerolog.Nop())
	model.Update(workspacesLoadedMsg{workspaces: testWorkspaces()})

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("sales")})
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, model.visible, 1)

	// First esc clears the filter
	escMsg := tea.KeyMsg{Type: tea.KeyEscape}
	_, cmd := model.Update(escMsg)
	assert.Nil(t, cmd)
	assert.Len(t, model.visible, 3)

	// Second esc backs out to the menu
	_, cmd = model.Update(escMsg)
	require.NotNil(t, cmd)
	assert.IsType(t, backMsg{}, cmd())
}

// TestWorkspacesModel_ReloadKey verifies 'r' restarts the fetch.
func TestWorkspacesModel_ReloadKey(t *testing.T) {
	calls := 0
	loader := func(_ context.Context) ([]powerbi.Workspace, error) {
		calls++
		return testWorkspaces(), nil
	}
	model := NewWorkspacesModel(context.Background(), loader, zerolog.Nop())
	model.Update(workspacesLoadedMsg{workspaces: testWorkspaces()})

	rMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	_, cmd := model.Update(rMsg)

	assert.Equal(t, workspacesStateLoading, model.state)
	require.NotNil(t, cmd)

	msg := model.fetchCmd()()
	assert.IsType(t, workspacesLoadedMsg{}, msg)
	assert.Equal(t, 1, calls)
}

// TestWorkspacesModel_QuitKey verifies 'q' quits from the table.
func TestWorkspacesModel_QuitKey(t *testing.T) {
	model := NewWorkspacesModel(context.Background(), nil, zerolog.Nop())
	model.Update(workspacesLoadedMsg{workspaces: testWorkspaces()})

	qMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	_, cmd := model.Update(qMsg)

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
