package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/config"
)

// newCacheSeeder opens a manager rooted at the same folder the commands
// resolve from the default configuration, so tests can plant snapshots.
func newCacheSeeder(t *testing.T, home string) *cache.Manager {
	t.Helper()
	mgr, err := cache.New(cache.Config{
		Folder:  filepath.Join(home, "cache"),
		Enabled: true,
	})
	require.NoError(t, err)
	return mgr
}

// plantVersionDir creates a bare version directory. Listing and clearing
// read directory names only, so no envelope file is needed.
func plantVersionDir(t *testing.T, home, key, version string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "cache", key, version), 0o750))
}

func TestCacheListTable(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	_, err := mgr.Save("workspaces", []string{"ws-1"}, nil)
	require.NoError(t, err)
	_, err = mgr.Save("apps", []string{"app-1"}, nil)
	require.NoError(t, err)

	out, _, err := runCommand(t, "cache", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "VERSIONS")
	assert.Contains(t, out, "workspaces")
	assert.Contains(t, out, "apps")
	assert.Contains(t, out, "Total: 2 keys")
}

func TestCacheListEmpty(t *testing.T) {
	setupCommandTest(t)

	out, _, err := runCommand(t, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "The cache is empty.")
}

func TestCacheListJSON(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	version, err := mgr.Save("workspaces", []string{"ws-1"}, nil)
	require.NoError(t, err)

	out, _, err := runCommand(t, "cache", "list", "--output", "json")
	require.NoError(t, err)

	var listed struct {
		Count int `json:"count"`
		Keys  []struct {
			Key      string `json:"key"`
			Versions int    `json:"versions"`
			Latest   string `json:"latest"`
		} `json:"keys"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, 1, listed.Count)
	require.Len(t, listed.Keys, 1)
	assert.Equal(t, "workspaces", listed.Keys[0].Key)
	assert.Equal(t, 1, listed.Keys[0].Versions)
	assert.Equal(t, version, listed.Keys[0].Latest)
}

func TestCacheListDisabled(t *testing.T) {
	setupCommandTest(t)

	cfg := config.NewDefault()
	cfg.Cache.Enabled = false
	require.NoError(t, cfg.Save())

	_, _, err := runCommand(t, "cache", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCacheDisabled)
}

func TestCacheVersionsOldestFirst(t *testing.T) {
	home := setupCommandTest(t)
	plantVersionDir(t, home, "workspaces", "20250101_090000")
	plantVersionDir(t, home, "workspaces", "20250315_120000")

	out, _, err := runCommand(t, "cache", "versions", "workspaces")
	require.NoError(t, err)

	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "20250101_090000")
	assert.Contains(t, out, "2025-01-01 09:00:00")
	assert.Contains(t, out, "20250315_120000")
	assert.Contains(t, out, "Total: 2 versions")
	assert.Less(t, strings.Index(out, "20250101_090000"), strings.Index(out, "20250315_120000"),
		"versions must list oldest first")
}

func TestCacheVersionsUnknownKey(t *testing.T) {
	setupCommandTest(t)

	out, _, err := runCommand(t, "cache", "versions", "workspaces")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached versions for workspaces.")
}

func TestCacheShow(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	version, err := mgr.Save("workspaces", []string{"ws-1", "ws-2"},
		map[string]interface{}{"filter": "contains(name,'Sales')"})
	require.NoError(t, err)

	out, _, err := runCommand(t, "cache", "show", "workspaces")
	require.NoError(t, err)

	assert.Contains(t, out, "Key:")
	assert.Contains(t, out, "workspaces")
	assert.Contains(t, out, version)
	assert.Contains(t, out, "Cached at:")
	assert.Contains(t, out, "Data size:")
	assert.Contains(t, out, "Metadata")
	assert.Contains(t, out, "filter:")
	assert.Contains(t, out, "contains(name,'Sales')")
}

func TestCacheShowJSON(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	_, err := mgr.Save("workspaces", []string{"ws-1"}, nil)
	require.NoError(t, err)

	out, _, err := runCommand(t, "cache", "show", "workspaces", "--output", "json")
	require.NoError(t, err)

	var entry cache.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "workspaces", entry.CacheKey)
	assert.NotEmpty(t, entry.Version)

	var data []string
	require.NoError(t, entry.DecodeData(&data))
	assert.Equal(t, []string{"ws-1"}, data)
}

// TestCacheShowSpecificVersion pins --version to an older snapshot while the
// default show serves the latest.
func TestCacheShowSpecificVersion(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	latest, err := mgr.Save("workspaces", []string{"ws-1"}, nil)
	require.NoError(t, err)

	// Copy the envelope into an older version directory; the reader treats
	// the path as authoritative for the version.
	const older = "20200101_000000"
	payload, err := os.ReadFile(filepath.Join(home, "cache", "workspaces", latest, "workspaces.json"))
	require.NoError(t, err)
	plantVersionDir(t, home, "workspaces", older)
	require.NoError(t, os.WriteFile(
		filepath.Join(home, "cache", "workspaces", older, "workspaces.json"), payload, 0o600))

	out, _, err := runCommand(t, "cache", "show", "workspaces", "--version", older)
	require.NoError(t, err)
	assert.Contains(t, out, older)

	out, _, err = runCommand(t, "cache", "show", "workspaces")
	require.NoError(t, err)
	assert.Contains(t, out, latest)
}

func TestCacheShowMiss(t *testing.T) {
	setupCommandTest(t)

	_, _, err := runCommand(t, "cache", "show", "workspaces")
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCacheClearKey(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	_, err := mgr.Save("workspaces", []string{"ws-1"}, nil)
	require.NoError(t, err)
	_, err = mgr.Save("apps", []string{"app-1"}, nil)
	require.NoError(t, err)

	out, _, err := runCommand(t, "cache", "clear", "workspaces")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared cache key workspaces")

	listed, _, err := runCommand(t, "cache", "list")
	require.NoError(t, err)
	assert.NotContains(t, listed, "workspaces")
	assert.Contains(t, listed, "apps")
}

func TestCacheClearVersion(t *testing.T) {
	home := setupCommandTest(t)
	plantVersionDir(t, home, "workspaces", "20250101_090000")
	plantVersionDir(t, home, "workspaces", "20250315_120000")

	out, _, err := runCommand(t, "cache", "clear", "workspaces", "--version", "20250101_090000")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared version 20250101_090000 of workspaces")

	versions, _, err := runCommand(t, "cache", "versions", "workspaces")
	require.NoError(t, err)
	assert.NotContains(t, versions, "20250101_090000")
	assert.Contains(t, versions, "20250315_120000")
}

func TestCacheClearAllForce(t *testing.T) {
	home := setupCommandTest(t)
	mgr := newCacheSeeder(t, home)

	_, err := mgr.Save("workspaces", []string{"ws-1"}, nil)
	require.NoError(t, err)

	out, _, err := runCommand(t, "cache", "clear", "--all", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared all cached data")

	listed, _, err := runCommand(t, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, listed, "The cache is empty.")
}

// TestCacheClearAllNonInteractive verifies --all refuses to run without a
// terminal to confirm on, instead of silently wiping everything.
func TestCacheClearAllNonInteractive(t *testing.T) {
	setupCommandTest(t)

	_, _, err := runCommand(t, "cache", "clear", "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --force")
}

func TestCacheClearArgumentConflicts(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		errorMsg string
	}{
		{
			name:     "all with key",
			args:     []string{"cache", "clear", "workspaces", "--all"},
			errorMsg: "--all cannot be combined with a key",
		},
		{
			name:     "all with version",
			args:     []string{"cache", "clear", "--all", "--version", "20250101_090000"},
			errorMsg: "--all cannot be combined with --version",
		},
		{
			name:     "no target",
			args:     []string{"cache", "clear"},
			errorMsg: "specify a cache key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCommandTest(t)

			_, _, err := runCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

// TestCacheClearMissingKey verifies clearing an absent key is a quiet no-op.
func TestCacheClearMissingKey(t *testing.T) {
	setupCommandTest(t)

	out, _, err := runCommand(t, "cache", "clear", "workspaces")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared cache key workspaces")
}
