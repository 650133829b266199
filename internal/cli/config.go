package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
)

// newConfigCmd creates the config command group.
func newConfigCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pbicli configuration",
	}

	cmd.AddCommand(
		newConfigInitCmd(state),
		newConfigShowCmd(state),
		newConfigGetCmd(state),
		newConfigSetCmd(state),
	)

	return cmd
}

const configInitExample = `  # Write ~/.pbicli/config.yaml with the defaults
  pbicli config init

  # Start a project-local configuration in the current directory
  pbicli config init --local`

type configInitParams struct {
	force bool
	local bool
}

// newConfigInitCmd creates the config init command.
func newConfigInitCmd(_ *rootState) *cobra.Command {
	var params configInitParams

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with default values",
		Long: `Create a configuration file populated with the defaults.

Without flags the global file at ~/.pbicli/config.yaml is created. With
--local a .pbicli.yaml overlay is written to the current directory; its
values shadow the global configuration for commands run in this directory
tree, and the project cache folder is kept out of version control.`,
		Example: configInitExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeConfigInit(cmd, params)
		},
	}

	cmd.Flags().BoolVar(&params.force, "force", false,
		"overwrite an existing configuration file")
	cmd.Flags().BoolVar(&params.local, "local", false,
		"create a project-local .pbicli.yaml in the current directory")

	return cmd
}

func executeConfigInit(cmd *cobra.Command, params configInitParams) error {
	log := logging.FromContext(cmd.Context())

	cfg := config.NewDefault()

	var localStateDir string
	if params.local {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determining working directory: %w", err)
		}
		localStateDir = filepath.Join(wd, ".pbicli")
		cfg.SetConfigPath(filepath.Join(wd, config.LocalConfigFileName))
		cfg.Cache.Folder = filepath.Join(".pbicli", "cache")
	}

	path := cfg.ConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine the configuration path")
	}

	if _, err := os.Stat(path); err == nil && !params.force {
		return fmt.Errorf("configuration file already exists at %s, use --force to overwrite", path)
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	log.Info().Str("path", path).Bool("local", params.local).Msg("configuration initialized")
	cmd.Printf("Created configuration file at %s\n", path)

	if params.local {
		created, err := config.EnsureGitignore(localStateDir)
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("Created %s\n", filepath.Join(localStateDir, ".gitignore"))
		}
	}

	return nil
}

// newConfigShowCmd creates the config show command.
func newConfigShowCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeConfigShow(cmd, state)
		},
	}

	return cmd
}

func executeConfigShow(cmd *cobra.Command, state *rootState) error {
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	settings := state.cfg.List()

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), settings)
	}

	out := cmd.OutOrStdout()
	tw := newTable(out)
	fmt.Fprintln(tw, "KEY\tVALUE")
	fmt.Fprintln(tw, "---\t-----")
	for _, setting := range settings {
		fmt.Fprintf(tw, "%s\t%v\n", setting.Key, setting.Value)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing settings table: %w", err)
	}

	if path := state.cfg.ConfigPath(); path != "" {
		fmt.Fprintf(out, "\nConfiguration file: %s\n", path)
	}
	return nil
}

// newConfigGetCmd creates the config get command.
func newConfigGetCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print one configuration value",
		Long: `Print the configuration value at a dot-separated path, for example
"cache.folder" or "profiles.work.tenant_id".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeConfigGet(cmd, state, args[0])
		},
	}

	return cmd
}

func executeConfigGet(cmd *cobra.Command, state *rootState, path string) error {
	value, err := state.cfg.Get(path)
	if err != nil {
		return err
	}
	cmd.Printf("%v\n", value)
	return nil
}

// newConfigSetCmd creates the config set command.
func newConfigSetCmd(_ *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set one configuration value in the global file",
		Long: `Set the configuration value at a dot-separated path and save the global
configuration file. Project-local .pbicli.yaml overlays are edited by
hand, not through this command.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeConfigSet(cmd, args[0], args[1])
		},
	}

	return cmd
}

func executeConfigSet(cmd *cobra.Command, path, value string) error {
	// Operate on the global file alone so overlay values never leak into it.
	cfg := config.New()

	if err := cfg.Set(path, value); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	logging.FromContext(cmd.Context()).Info().
		Str("setting", path).
		Msg("configuration updated")

	cmd.Printf("Updated %s\n", path)
	return nil
}
