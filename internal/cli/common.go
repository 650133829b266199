package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/auth"
	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/cli/pagination"
	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
	"github.com/rshade/pbicli/internal/powerbi"
)

// rootState carries the dependencies every subcommand shares for one
// invocation. The root PersistentPreRunE populates cfg before any RunE
// runs, so command constructors close over the pointer instead of reading
// package-level state.
type rootState struct {
	cfg       *config.Config
	lookupEnv func(string) (string, bool)

	debug   bool
	profile string
	output  string
}

// outputFormat resolves the output format for this invocation. The
// --output flag wins over the configured default.
func (s *rootState) outputFormat() string {
	if s.output != "" {
		return s.output
	}
	if s.cfg != nil && s.cfg.Output.Format != "" {
		return s.cfg.Output.Format
	}
	return config.FormatTable
}

// profileName resolves the profile for this invocation. The --profile flag
// wins over the configured active profile.
func (s *rootState) profileName() string {
	if s.profile != "" {
		return s.profile
	}
	if s.cfg != nil && s.cfg.ActiveProfile != "" {
		return s.cfg.ActiveProfile
	}
	return config.DefaultProfileName
}

// credentialStore opens and loads the credentials file.
func (s *rootState) credentialStore() (*auth.Store, error) {
	store, err := auth.NewStore("")
	if err != nil {
		return nil, err
	}
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// apiClient builds the REST client authenticated by the stored credential
// for the selected profile.
func (s *rootState) apiClient() (*powerbi.Client, error) {
	store, err := s.credentialStore()
	if err != nil {
		return nil, err
	}
	tokens := auth.NewStoreTokenSource(store, s.profileName())
	return powerbi.NewClient(tokens, powerbi.Options{
		Logger: logging.ComponentLogger(logger, "powerbi"),
	}), nil
}

// cacheManager builds the response cache from the resolved configuration.
func (s *rootState) cacheManager() (*cache.Manager, error) {
	cacheCfg := s.cfg.Cache.ToCacheConfig()
	cacheCfg.Logger = logging.ComponentLogger(logger, "cache")
	return cache.New(cacheCfg)
}

// validateOutputFormat rejects formats other than table and json before any
// API call is made.
func validateOutputFormat(format string) error {
	switch format {
	case config.FormatTable, config.FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json)", format)
	}
}

// cacheFlags holds the cache policy flags shared by fetching commands.
type cacheFlags struct {
	useCache  bool
	cacheOnly bool
	noCache   bool
}

// registerCacheFlags wires the cache policy flags onto a fetching command.
func registerCacheFlags(cmd *cobra.Command, flags *cacheFlags) {
	cmd.Flags().BoolVar(&flags.useCache, "use-cache", false,
		"serve cached data when present, fetch only on a miss")
	cmd.Flags().BoolVar(&flags.cacheOnly, "cache-only", false,
		"serve cached data only, never call the API")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false,
		"bypass the cache entirely for this invocation")
}

// policy resolves the flag combination into a cache policy.
func (f cacheFlags) policy() (cache.Policy, error) {
	set := 0
	for _, enabled := range []bool{f.useCache, f.cacheOnly, f.noCache} {
		if enabled {
			set++
		}
	}
	if set > 1 {
		return "", errors.New("--use-cache, --cache-only, and --no-cache are mutually exclusive")
	}

	switch {
	case f.cacheOnly:
		return cache.PolicyCacheOnly, nil
	case f.useCache:
		return cache.PolicyUseCache, nil
	default:
		return cache.PolicyDefault, nil
	}
}

// paginationFlags holds the client-side list shaping flags.
type paginationFlags struct {
	limit    int
	offset   int
	page     int
	pageSize int
	sort     string
}

// registerPaginationFlags wires the shared list flags onto cmd.
func registerPaginationFlags(cmd *cobra.Command, flags *paginationFlags) {
	cmd.Flags().IntVar(&flags.limit, "limit", pagination.DefaultLimit,
		"maximum number of rows to show (0 = all)")
	cmd.Flags().IntVar(&flags.offset, "offset", pagination.DefaultOffset,
		"number of rows to skip")
	cmd.Flags().IntVar(&flags.page, "page", 0,
		"1-based page number (requires --page-size)")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0,
		"rows per page (requires --page)")
	cmd.Flags().StringVar(&flags.sort, "sort", "",
		"sort expression: 'field' or 'field:order' (e.g., 'name:desc')")
}

// params builds validated PaginationParams from the flag values.
func (f paginationFlags) params() (pagination.PaginationParams, error) {
	field, order, err := pagination.ParseSort(f.sort)
	if err != nil {
		return pagination.PaginationParams{}, err
	}

	params := pagination.PaginationParams{
		Limit:     f.limit,
		Offset:    f.offset,
		Page:      f.page,
		PageSize:  f.pageSize,
		SortField: field,
		SortOrder: order,
	}
	if err := params.Validate(); err != nil {
		return pagination.PaginationParams{}, fmt.Errorf("invalid pagination parameters: %w", err)
	}
	return params, nil
}
