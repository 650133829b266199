package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/cli/pagination"
)

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	mgr, err := cache.New(cache.Config{Folder: t.TempDir(), Enabled: true})
	require.NoError(t, err)
	return mgr
}

func newDisabledCache(t *testing.T) *cache.Manager {
	t.Helper()
	mgr, err := cache.New(cache.Config{Enabled: false})
	require.NoError(t, err)
	return mgr
}

func TestFetchThroughCacheDefaultPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches live and saves the result", func(t *testing.T) {
		mgr := newTestCache(t)

		out, result, err := fetchThroughCache(ctx, mgr, cache.PolicyDefault,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				return []string{"alpha", "beta"}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta"}, out)
		assert.False(t, result.FromCache)
		assert.NotEmpty(t, result.Version)

		has, err := mgr.Has("workspaces")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("ignores existing snapshots", func(t *testing.T) {
		mgr := newTestCache(t)
		_, err := mgr.Save("workspaces", []string{"stale"}, nil)
		require.NoError(t, err)

		out, result, err := fetchThroughCache(ctx, mgr, cache.PolicyDefault,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				return []string{"fresh"}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, out)
		assert.False(t, result.FromCache)
	})

	t.Run("skipSave leaves the cache untouched", func(t *testing.T) {
		mgr := newTestCache(t)

		_, result, err := fetchThroughCache(ctx, mgr, cache.PolicyDefault,
			fetchOptions{key: "report_export", skipSave: true},
			func(_ context.Context) (string, error) {
				return "binary", nil
			})

		require.NoError(t, err)
		assert.Empty(t, result.Version)

		has, err := mgr.Has("report_export")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("disabled cache still fetches", func(t *testing.T) {
		mgr := newDisabledCache(t)

		out, result, err := fetchThroughCache(ctx, mgr, cache.PolicyDefault,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				return []string{"live"}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"live"}, out)
		assert.Empty(t, result.Version)
	})

	t.Run("fetch errors propagate", func(t *testing.T) {
		mgr := newTestCache(t)
		cause := errors.New("api down")

		_, _, err := fetchThroughCache(ctx, mgr, cache.PolicyDefault,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				return nil, cause
			})

		assert.ErrorIs(t, err, cause)
	})
}

func TestFetchThroughCacheUseCache(t *testing.T) {
	ctx := context.Background()

	t.Run("serves the cached snapshot on a hit", func(t *testing.T) {
		mgr := newTestCache(t)
		version, err := mgr.Save("workspaces", []string{"cached"}, nil)
		require.NoError(t, err)

		out, result, err := fetchThroughCache(ctx, mgr, cache.PolicyUseCache,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				t.Fatal("the API must not be called on a cache hit")
				return nil, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, out)
		assert.True(t, result.FromCache)
		assert.Equal(t, version, result.Version)
	})

	t.Run("falls back to a live fetch on a miss", func(t *testing.T) {
		mgr := newTestCache(t)

		out, result, err := fetchThroughCache(ctx, mgr, cache.PolicyUseCache,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				return []string{"live"}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"live"}, out)
		assert.False(t, result.FromCache)
		assert.NotEmpty(t, result.Version)
	})

	t.Run("falls back to a live fetch on a corrupt entry", func(t *testing.T) {
		folder := t.TempDir()
		mgr, err := cache.New(cache.Config{Folder: folder, Enabled: true})
		require.NoError(t, err)

		entryDir := filepath.Join(folder, "workspaces", "20250101_090000")
		require.NoError(t, os.MkdirAll(entryDir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(entryDir, "workspaces.json"),
			[]byte("{not json"), 0o600))

		out, _, err := fetchThroughCache(ctx, mgr, cache.PolicyUseCache,
			fetchOptions{key: "workspaces"},
			func(_ context.Context) ([]string, error) {
				return []string{"live"}, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"live"}, out)
	})
}

func TestFetchThroughCacheCacheOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("serves the cached snapshot", func(t *testing.T) {
		mgr := newTestCache(t)
		_, err := mgr.Save("apps", []string{"cached"}, nil)
		require.NoError(t, err)

		out, result, err := fetchThroughCache(ctx, mgr, cache.PolicyCacheOnly,
			fetchOptions{key: "apps"},
			func(_ context.Context) ([]string, error) {
				t.Fatal("the API must not be called in cache-only mode")
				return nil, nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, out)
		assert.True(t, result.FromCache)
	})

	t.Run("a miss is an exit code 3 failure", func(t *testing.T) {
		mgr := newTestCache(t)

		_, _, err := fetchThroughCache(ctx, mgr, cache.PolicyCacheOnly,
			fetchOptions{key: "apps"},
			func(_ context.Context) ([]string, error) {
				t.Fatal("the API must not be called in cache-only mode")
				return nil, nil
			})

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, ExitCodeCacheMiss, exitErr.ExitCode)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
		assert.Contains(t, err.Error(), "re-run without --cache-only")
	})

	t.Run("a disabled cache is an exit code 3 failure", func(t *testing.T) {
		mgr := newDisabledCache(t)

		_, _, err := fetchThroughCache(ctx, mgr, cache.PolicyCacheOnly,
			fetchOptions{key: "apps"},
			func(_ context.Context) ([]string, error) {
				t.Fatal("the API must not be called in cache-only mode")
				return nil, nil
			})

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, ExitCodeCacheMiss, exitErr.ExitCode)
		assert.ErrorIs(t, err, cache.ErrCacheDisabled)
	})

	t.Run("a corrupt entry propagates the error", func(t *testing.T) {
		folder := t.TempDir()
		mgr, err := cache.New(cache.Config{Folder: folder, Enabled: true})
		require.NoError(t, err)

		entryDir := filepath.Join(folder, "apps", "20250101_090000")
		require.NoError(t, os.MkdirAll(entryDir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(entryDir, "apps.json"),
			[]byte("{not json"), 0o600))

		_, _, err = fetchThroughCache(ctx, mgr, cache.PolicyCacheOnly,
			fetchOptions{key: "apps"},
			func(_ context.Context) ([]string, error) {
				t.Fatal("the API must not be called in cache-only mode")
				return nil, nil
			})

		assert.ErrorIs(t, err, cache.ErrCacheCorrupt)
	})
}

func TestPrintCacheNotice(t *testing.T) {
	t.Run("silent for live fetches", func(t *testing.T) {
		var errBuf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetErr(&errBuf)

		printCacheNotice(cmd, fetchResult{FromCache: false})

		assert.Empty(t, errBuf.String())
	})

	t.Run("notes the snapshot time and version", func(t *testing.T) {
		var errBuf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetErr(&errBuf)

		mgr := newTestCache(t)
		_, err := mgr.Save("workspaces", []string{"x"}, nil)
		require.NoError(t, err)
		entry, err := mgr.Load("workspaces", "")
		require.NoError(t, err)

		printCacheNotice(cmd, fetchResult{
			FromCache: true,
			Version:   entry.Version,
			CachedAt:  entry.CachedAt,
		})

		assert.Contains(t, errBuf.String(), "Using cached data from")
		assert.Contains(t, errBuf.String(), entry.Version)
	})
}

func TestApplyListTransforms(t *testing.T) {
	type row struct {
		Name string
	}
	sorter := pagination.NewSorter(map[string]pagination.LessFunc[row]{
		"name": func(a, b row) bool { return a.Name < b.Name },
	})
	items := []row{{Name: "charlie"}, {Name: "alpha"}, {Name: "bravo"}}

	t.Run("no flags returns items unchanged", func(t *testing.T) {
		out, meta, err := applyListTransforms(items, pagination.PaginationParams{}, sorter)
		require.NoError(t, err)
		assert.Equal(t, items, out)
		assert.Nil(t, meta)
	})

	t.Run("sorts by a registered field", func(t *testing.T) {
		params := pagination.PaginationParams{SortField: "name", SortOrder: "desc"}
		out, meta, err := applyListTransforms(items, params, sorter)
		require.NoError(t, err)
		assert.Equal(t, []row{{Name: "charlie"}, {Name: "bravo"}, {Name: "alpha"}}, out)
		assert.Nil(t, meta)
	})

	t.Run("rejects unknown sort fields", func(t *testing.T) {
		params := pagination.PaginationParams{SortField: "size", SortOrder: "asc"}
		_, _, err := applyListTransforms(items, params, sorter)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid sort field: "size"`)
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("paginates and reports the position", func(t *testing.T) {
		params := pagination.PaginationParams{Limit: 2, SortField: "name", SortOrder: "asc"}
		out, meta, err := applyListTransforms(items, params, sorter)
		require.NoError(t, err)
		assert.Equal(t, []row{{Name: "alpha"}, {Name: "bravo"}}, out)
		require.NotNil(t, meta)
		assert.Equal(t, 3, meta.TotalItems)
		assert.Equal(t, 1, meta.CurrentPage)
		assert.Equal(t, 2, meta.TotalPages)
	})
}
