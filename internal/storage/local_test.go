package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackendReadWrite(t *testing.T) {
	backend := NewLocalBackend(t.TempDir())

	t.Run("write creates parents and read round-trips", func(t *testing.T) {
		p := backend.Join("workspaces", "20240101_120000", "workspaces.json")
		require.NoError(t, backend.WriteFile(p, []byte(`{"value":[]}`)))

		data, err := backend.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, `{"value":[]}`, string(data))
	})

	t.Run("written files are private", func(t *testing.T) {
		p := backend.Join("apps", "20240101_120000", "apps.json")
		require.NoError(t, backend.WriteFile(p, []byte(`{}`)))

		info, err := os.Stat(filepath.Join(backend.Root(), p))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("missing file reports fs.ErrNotExist", func(t *testing.T) {
		_, err := backend.ReadFile(backend.Join("nope", "nope.json"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("rewrite replaces contents", func(t *testing.T) {
		p := backend.Join("reports", "20240101_120000", "reports.json")
		require.NoError(t, backend.WriteFile(p, []byte(`first`)))
		require.NoError(t, backend.WriteFile(p, []byte(`second`)))

		data, err := backend.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		p := backend.Join("datasets", "20240101_120000", "datasets.json")
		require.NoError(t, backend.WriteFile(p, []byte(`{}`)))

		entries, err := os.ReadDir(filepath.Join(backend.Root(), "datasets", "20240101_120000"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "datasets.json", entries[0].Name())
	})
}

func TestLocalBackendListDirs(t *testing.T) {
	backend := NewLocalBackend(t.TempDir())

	t.Run("missing path lists empty", func(t *testing.T) {
		dirs, err := backend.ListDirs("absent")
		require.NoError(t, err)
		assert.Empty(t, dirs)
	})

	t.Run("lists only directories, sorted", func(t *testing.T) {
		require.NoError(t, backend.WriteFile(backend.Join("ws", "20240102_000000", "ws.json"), []byte(`{}`)))
		require.NoError(t, backend.WriteFile(backend.Join("ws", "20240101_000000", "ws.json"), []byte(`{}`)))
		require.NoError(t, backend.WriteFile(backend.Join("ws", "stray.txt"), []byte(`x`)))

		dirs, err := backend.ListDirs("ws")
		require.NoError(t, err)
		assert.Equal(t, []string{"20240101_000000", "20240102_000000"}, dirs)
	})
}

func TestLocalBackendRemoveAll(t *testing.T) {
	backend := NewLocalBackend(t.TempDir())

	require.NoError(t, backend.WriteFile(backend.Join("ws", "v1", "ws.json"), []byte(`{}`)))
	require.NoError(t, backend.WriteFile(backend.Join("ws", "v2", "ws.json"), []byte(`{}`)))

	t.Run("removes the whole subtree", func(t *testing.T) {
		require.NoError(t, backend.RemoveAll("ws"))
		exists, err := backend.Exists("ws")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("idempotent on missing path", func(t *testing.T) {
		assert.NoError(t, backend.RemoveAll("ws"))
	})
}

func TestLocalBackendExists(t *testing.T) {
	backend := NewLocalBackend(t.TempDir())
	require.NoError(t, backend.WriteFile(backend.Join("ws", "v1", "ws.json"), []byte(`{}`)))

	cases := []struct {
		name string
		path string
		want bool
	}{
		{"directory exists", "ws", true},
		{"nested file exists", backend.Join("ws", "v1", "ws.json"), true},
		{"missing path", "absent", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := backend.Exists(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLocalBackendUnavailable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are meaningless as root")
	}

	dir := t.TempDir()
	backend := NewLocalBackend(dir)
	require.NoError(t, backend.WriteFile(backend.Join("ws", "v1", "ws.json"), []byte(`{}`)))

	locked := filepath.Join(dir, "ws")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0750) })

	_, err := backend.ReadFile(backend.Join("ws", "v1", "ws.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
}
