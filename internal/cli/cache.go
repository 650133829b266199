package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
)

// statConcurrency bounds the parallel per-key version listings in cache
// list. Remote backends pay one round trip per key.
const statConcurrency = 8

// newCacheCmd creates the cache command group.
func newCacheCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune cached API responses",
	}

	cmd.AddCommand(
		newCacheListCmd(state),
		newCacheVersionsCmd(state),
		newCacheShowCmd(state),
		newCacheClearCmd(state),
	)

	return cmd
}

// cacheKeyInfo is one row of cache list output.
type cacheKeyInfo struct {
	Key      string `json:"key"`
	Versions int    `json:"versions"`
	Latest   string `json:"latest,omitempty"`
}

// cacheListOutput is the JSON shape of cache list output.
type cacheListOutput struct {
	Count int            `json:"count"`
	Keys  []cacheKeyInfo `json:"keys"`
}

// newCacheListCmd creates the cache list command.
func newCacheListCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached dataset keys with their version counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeCacheList(cmd, state)
		},
	}

	return cmd
}

func executeCacheList(cmd *cobra.Command, state *rootState) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	keys, err := mgr.ListKeys()
	if err != nil {
		return err
	}

	log.Debug().Ctx(ctx).Int("keys", len(keys)).Msg("statting cache keys")

	infos := make([]cacheKeyInfo, len(keys))
	var g errgroup.Group
	g.SetLimit(statConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			versions, versionsErr := mgr.ListVersions(key)
			if versionsErr != nil {
				return fmt.Errorf("listing versions of %s: %w", key, versionsErr)
			}
			info := cacheKeyInfo{Key: key, Versions: len(versions)}
			if len(versions) > 0 {
				info.Latest = versions[len(versions)-1]
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), cacheListOutput{Count: len(infos), Keys: infos})
	}
	return renderCacheKeysTable(cmd.OutOrStdout(), infos)
}

func renderCacheKeysTable(w io.Writer, infos []cacheKeyInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(w, "The cache is empty.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "KEY\tVERSIONS\tLATEST")
	fmt.Fprintln(tw, "---\t--------\t------")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Key, info.Versions, info.Latest)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing cache table: %w", err)
	}

	msgPrinter.Fprintf(w, "\nTotal: %d keys\n", len(infos))
	return nil
}

// cacheVersionsOutput is the JSON shape of cache versions output.
type cacheVersionsOutput struct {
	Key      string   `json:"key"`
	Count    int      `json:"count"`
	Versions []string `json:"versions"`
}

// newCacheVersionsCmd creates the cache versions command.
func newCacheVersionsCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <key>",
		Short: "List the stored versions of one cache key, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCacheVersions(cmd, state, args[0])
		},
	}

	return cmd
}

func executeCacheVersions(cmd *cobra.Command, state *rootState, key string) error {
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	versions, err := mgr.ListVersions(key)
	if err != nil {
		return err
	}

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), cacheVersionsOutput{
			Key:      key,
			Count:    len(versions),
			Versions: versions,
		})
	}

	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintf(out, "No cached versions for %s.\n", key)
		return nil
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "VERSION\tCREATED")
	fmt.Fprintln(tw, "-------\t-------")
	for _, v := range versions {
		created := ""
		if t, parseErr := cache.ParseVersion(v); parseErr == nil {
			created = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\n", v, created)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing versions table: %w", err)
	}

	msgPrinter.Fprintf(out, "\nTotal: %d versions\n", len(versions))
	return nil
}

type cacheShowParams struct {
	version string
}

// newCacheShowCmd creates the cache show command.
func newCacheShowCmd(state *rootState) *cobra.Command {
	var params cacheShowParams

	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show a cached entry's envelope and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCacheShow(cmd, state, params, args[0])
		},
	}

	cmd.Flags().StringVar(&params.version, "version", "",
		"version stamp to show (defaults to the latest)")

	return cmd
}

func executeCacheShow(cmd *cobra.Command, state *rootState, params cacheShowParams, key string) error {
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	entry, err := mgr.Load(key, params.version)
	if err != nil {
		return err
	}

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), entry)
	}

	out := cmd.OutOrStdout()
	tw := newTable(out)
	fmt.Fprintf(tw, "Key:\t%s\n", entry.CacheKey)
	fmt.Fprintf(tw, "Version:\t%s\n", entry.Version)
	fmt.Fprintf(tw, "Cached at:\t%s\n", entry.CachedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Age:\t%s\n", entry.Age().Round(time.Second))
	fmt.Fprintf(tw, "Data size:\t%d bytes\n", len(entry.Data))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing entry details: %w", err)
	}

	if len(entry.Metadata) > 0 {
		names := make([]string, 0, len(entry.Metadata))
		for name := range entry.Metadata {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(out, "\nMetadata")
		fmt.Fprintln(out, "========")
		mw := newTable(out)
		for _, name := range names {
			fmt.Fprintf(mw, "%s:\t%v\n", name, entry.Metadata[name])
		}
		if err := mw.Flush(); err != nil {
			return fmt.Errorf("flushing metadata table: %w", err)
		}
	}

	return nil
}

const cacheClearExample = `  # Drop one stale snapshot
  pbicli cache clear workspaces --version 20240115_103000

  # Drop a whole dataset
  pbicli cache clear workspaces

  # Start over (prompts unless --force is given)
  pbicli cache clear --all`

type cacheClearParams struct {
	version string
	all     bool
	force   bool
}

// newCacheClearCmd creates the cache clear command.
func newCacheClearCmd(state *rootState) *cobra.Command {
	var params cacheClearParams

	cmd := &cobra.Command{
		Use:     "clear [key]",
		Short:   "Remove cached data for a key, a version, or everything",
		Example: cacheClearExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCacheClear(cmd, state, params, args)
		},
	}

	cmd.Flags().StringVar(&params.version, "version", "",
		"only remove this version stamp")
	cmd.Flags().BoolVar(&params.all, "all", false,
		"remove every cached key")
	cmd.Flags().BoolVar(&params.force, "force", false,
		"skip the confirmation prompt for --all")

	return cmd
}

func executeCacheClear(cmd *cobra.Command, state *rootState, params cacheClearParams, args []string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	mgr, err := state.cacheManager()
	if err != nil {
		return err
	}

	switch {
	case params.all:
		if len(args) > 0 {
			return errors.New("--all cannot be combined with a key")
		}
		if params.version != "" {
			return errors.New("--all cannot be combined with --version")
		}

		if !params.force {
			result := confirm(os.Stdin, cmd.OutOrStdout(), "Clear ALL cached data?")
			if result.NonInteractive {
				return errors.New("refusing to clear the whole cache without a terminal, pass --force")
			}
			if !result.Accepted {
				cmd.Println("Aborted.")
				return nil
			}
		}

		if err := mgr.Clear("", ""); err != nil {
			return err
		}
		log.Info().Ctx(ctx).Msg("cache cleared")
		cmd.Println("Cleared all cached data")

	case len(args) == 0:
		return errors.New("specify a cache key, or --all to clear everything")

	case params.version != "":
		if err := mgr.Clear(args[0], params.version); err != nil {
			return err
		}
		log.Info().Ctx(ctx).Str("key", args[0]).Str("version", params.version).Msg("cache version cleared")
		cmd.Printf("Cleared version %s of %s\n", params.version, args[0])

	default:
		if err := mgr.Clear(args[0], ""); err != nil {
			return err
		}
		log.Info().Ctx(ctx).Str("key", args[0]).Msg("cache key cleared")
		cmd.Printf("Cleared cache key %s\n", args[0])
	}

	return nil
}
