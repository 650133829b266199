package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/cli/pagination"
	"github.com/rshade/pbicli/internal/logging"
)

// fetchOptions describe one cacheable dataset fetch.
type fetchOptions struct {
	// key is the cache key the dataset is stored under.
	key string
	// metadata records the request parameters that produced the data.
	metadata map[string]interface{}
	// skipSave suppresses writing the fetched result back to the cache.
	skipSave bool
}

// fetchResult reports where fetched data came from.
type fetchResult struct {
	FromCache bool
	Version   string
	CachedAt  time.Time
}

// fetchThroughCache applies the cache policy around one dataset fetch.
// The default policy fetches live and saves the result; use-cache prefers
// the latest snapshot and falls back to a live fetch; cache-only never
// fetches and turns a miss into an ExitCodeCacheMiss failure.
func fetchThroughCache[T any](
	ctx context.Context,
	mgr *cache.Manager,
	policy cache.Policy,
	opts fetchOptions,
	fetch func(context.Context) (T, error),
) (T, fetchResult, error) {
	var zero T
	log := logging.FromContext(ctx)

	if policy == cache.PolicyCacheOnly && !mgr.Enabled() {
		return zero, fetchResult{}, &ExitError{
			ExitCode: ExitCodeCacheMiss,
			Reason:   "cache is disabled, nothing to serve with --cache-only",
			Err:      cache.ErrCacheDisabled,
		}
	}

	if mgr.Enabled() && policy.ReadsCache() {
		entry, err := mgr.Load(opts.key, "")
		switch {
		case err == nil:
			var out T
			if decodeErr := entry.DecodeData(&out); decodeErr != nil {
				return zero, fetchResult{}, fmt.Errorf("decoding cached %s: %w", opts.key, decodeErr)
			}
			log.Debug().Ctx(ctx).
				Str("key", opts.key).
				Str("version", entry.Version).
				Msg("serving cached data")
			return out, fetchResult{
				FromCache: true,
				Version:   entry.Version,
				CachedAt:  entry.CachedAt,
			}, nil

		case errors.Is(err, cache.ErrCacheMiss):
			if policy == cache.PolicyCacheOnly {
				return zero, fetchResult{}, &ExitError{
					ExitCode: ExitCodeCacheMiss,
					Reason:   fmt.Sprintf("no cached data for %s, re-run without --cache-only to fetch it", opts.key),
					Err:      err,
				}
			}
			// use-cache falls through to the live fetch.

		case errors.Is(err, cache.ErrCacheCorrupt) && policy == cache.PolicyUseCache:
			log.Warn().Ctx(ctx).Err(err).
				Str("key", opts.key).
				Msg("cached entry unreadable, fetching live")

		default:
			return zero, fetchResult{}, err
		}
	}

	out, err := fetch(ctx)
	if err != nil {
		return zero, fetchResult{}, err
	}

	var result fetchResult
	if mgr.Enabled() && !opts.skipSave {
		version, saveErr := mgr.Save(opts.key, out, opts.metadata)
		if saveErr != nil {
			log.Warn().Ctx(ctx).Err(saveErr).
				Str("key", opts.key).
				Msg("could not cache API response")
		} else {
			result.Version = version
		}
	}

	return out, result, nil
}

// printCacheNotice tells the user when results came from the cache rather
// than the live API. The notice goes to stderr so JSON output stays
// parseable.
func printCacheNotice(cmd *cobra.Command, result fetchResult) {
	if !result.FromCache {
		return
	}
	cmd.PrintErrf("Using cached data from %s (version %s)\n",
		result.CachedAt.Format("2006-01-02 15:04:05"), result.Version)
}

// applyListTransforms sorts and paginates items according to params.
func applyListTransforms[T any](
	items []T,
	params pagination.PaginationParams,
	sorter *pagination.Sorter[T],
) ([]T, *pagination.PaginationMeta, error) {
	if params.SortField != "" {
		if !sorter.IsValidField(params.SortField) {
			return nil, nil, fmt.Errorf("invalid sort field: %q (valid fields: %s)",
				params.SortField, strings.Join(sorter.GetValidFields(), ", "))
		}
		items = sorter.Sort(items, params.SortField, params.SortOrder)
	}

	var meta *pagination.PaginationMeta
	if params.IsEnabled() {
		total := len(items)
		items = pagination.ApplyToSlice(params, items)
		m := pagination.NewPaginationMeta(params, total)
		meta = &m
	}

	return items, meta, nil
}
