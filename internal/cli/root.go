package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

const rootCmdExample = `  # List the workspaces you can access
  pbicli workspaces list

  # Same list, served from the cache when a snapshot exists
  pbicli workspaces list --use-cache

  # Sign in with the device code flow and inspect the session
  pbicli auth login --device-code
  pbicli auth status

  # Browse workspaces, apps, and the cache interactively
  pbicli tui`

// NewRootCmd creates the root command for the pbicli CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithArgs(ver, os.Args, os.LookupEnv)
}

// NewRootCmdWithArgs creates the root command with explicit process
// arguments and environment lookup so tests can drive a full invocation
// without touching the process environment.
func NewRootCmdWithArgs(ver string, args []string, lookupEnv func(string) (string, bool)) *cobra.Command {
	// Captured so PersistentPostRunE can close the log file that
	// PersistentPreRunE opened.
	var logResult *logging.LogPathResult

	state := &rootState{lookupEnv: lookupEnv}

	cmd := &cobra.Command{
		Use:     "pbicli",
		Short:   "Power BI REST API client",
		Long:    "pbicli: inspect Power BI workspaces, apps, reports, and users from the terminal",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			state.cfg = loadConfig(cmd.Context(), state.lookupEnv)

			result := setupLogging(cmd, state)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
		SilenceUsage: true,
	}

	if len(args) > 1 {
		cmd.SetArgs(args[1:])
	}

	cmd.PersistentFlags().BoolVar(&state.debug, "debug", false,
		"enable debug logging to the console")
	cmd.PersistentFlags().StringVar(&state.profile, "profile", "",
		"configuration profile to use")
	cmd.PersistentFlags().StringVarP(&state.output, "output", "o", "",
		"output format: table or json (default from configuration)")

	cmd.AddCommand(
		newAuthCmd(state),
		newWorkspacesCmd(state),
		newAppsCmd(state),
		newReportsCmd(state),
		newUsersCmd(state),
		newCacheCmd(state),
		newConfigCmd(state),
		newTuiCmd(state),
	)

	return cmd
}

// loadConfig builds the effective configuration for this invocation:
// the global config file overlaid with a project-local .pbicli.yaml when
// one exists in or above the working directory.
func loadConfig(ctx context.Context, lookupEnv func(string) (string, bool)) *config.Config {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	// An explicit config path skips local overlay discovery.
	if _, ok := lookupEnv(config.EnvConfigPath); ok {
		return config.NewWithLocalConfig(ctx, "")
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.NewWithLocalConfig(ctx, "")
	}
	return config.NewWithLocalConfig(ctx, config.FindLocalConfig(wd))
}
