package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/logging"
	"github.com/rshade/pbicli/internal/powerbi"
	"github.com/rshade/pbicli/internal/tui"
)

const tuiExample = `  # Launch the interactive explorer
  pbicli tui

  # Explore a different tenant
  pbicli --profile staging tui`

// newTuiCmd creates the tui command.
func newTuiCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Short:   "Launch the interactive explorer",
		Long:    "Browse workspaces, apps and cached API responses in a full-screen terminal UI.",
		Example: tuiExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return classifyExitError(executeTui(cmd, state))
		},
	}
}

func executeTui(cmd *cobra.Command, state *rootState) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return fmt.Errorf("the TUI needs an interactive terminal, use the list commands instead")
	}

	client, err := state.apiClient()
	if err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	// The browsers reuse the same datasets as the list commands, served
	// through the cache so switching screens does not refetch.
	workspaceLoader := func(ctx context.Context) ([]powerbi.Workspace, error) {
		workspaces, _, err := fetchThroughCache(ctx, mgr, cache.PolicyUseCache,
			fetchOptions{key: cacheKeyWorkspaces},
			func(ctx context.Context) ([]powerbi.Workspace, error) {
				return client.ListWorkspaces(ctx, nil)
			})
		return workspaces, err
	}
	appLoader := func(ctx context.Context) ([]powerbi.App, error) {
		apps, _, err := fetchThroughCache(ctx, mgr, cache.PolicyUseCache,
			fetchOptions{key: cacheKeyApps},
			func(ctx context.Context) ([]powerbi.App, error) {
				return client.ListApps(ctx)
			})
		return apps, err
	}

	model := tui.NewApp(ctx, tui.Options{
		Profile:    state.profileName(),
		Workspaces: workspaceLoader,
		Apps:       appLoader,
		Cache:      mgr,
		Logger:     logging.ComponentLogger(logger, "tui"),
	})

	log.Debug().Ctx(ctx).Msg("starting interactive explorer")

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	log.Info().Ctx(ctx).Msg("interactive explorer closed")

	return nil
}
