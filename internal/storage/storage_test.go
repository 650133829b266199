package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Run("plain path resolves to local backend", func(t *testing.T) {
		dir := t.TempDir()
		backend, err := Resolve(dir)
		require.NoError(t, err)

		local, ok := backend.(*LocalBackend)
		require.True(t, ok)
		assert.Equal(t, dir, local.Root())
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		backend, err := Resolve("cache-dir")
		require.NoError(t, err)

		local, ok := backend.(*LocalBackend)
		require.True(t, ok)
		assert.True(t, filepath.IsAbs(local.Root()))
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		backend, err := Resolve("~/.pbicli/cache")
		require.NoError(t, err)

		local, ok := backend.(*LocalBackend)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(home, ".pbicli", "cache"), local.Root())
	})

	t.Run("s3 scheme resolves to object-store backend", func(t *testing.T) {
		backend, err := Resolve("s3://reports-cache/pbi")
		require.NoError(t, err)

		s3, ok := backend.(*S3Backend)
		require.True(t, ok)
		assert.Equal(t, "reports-cache", s3.bucket)
		assert.Equal(t, "pbi", s3.prefix)
	})

	t.Run("empty folder is rejected", func(t *testing.T) {
		_, err := Resolve("")
		assert.Error(t, err)
	})
}
