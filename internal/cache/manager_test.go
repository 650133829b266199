package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/pbicli/internal/storage"
)

// newTestManager builds an enabled manager over a scratch directory with a
// deterministic clock starting at 2024-01-01 12:00:00, advancing one minute
// per Save.
func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()

	dir := t.TempDir()
	m, err := New(Config{Folder: dir, Enabled: true})
	require.NoError(t, err)

	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		stamp := current
		current = current.Add(time.Minute)
		return stamp
	}
	return m, dir
}

func TestManagerSaveLoad(t *testing.T) {
	m, dir := newTestManager(t)

	t.Run("round trip preserves data and metadata", func(t *testing.T) {
		data := map[string]interface{}{"value": []interface{}{map[string]interface{}{"id": "w1"}}}
		metadata := map[string]interface{}{"top": 10}

		version, err := m.Save("workspaces", data, metadata)
		require.NoError(t, err)
		assert.Equal(t, "20240101_120000", version)

		entry, err := m.Load("workspaces", version)
		require.NoError(t, err)
		assert.Equal(t, "workspaces", entry.CacheKey)
		assert.Equal(t, version, entry.Version)
		assert.JSONEq(t, `{"value":[{"id":"w1"}]}`, string(entry.Data))

		var decoded map[string]interface{}
		require.NoError(t, entry.DecodeData(&decoded))
		assert.Equal(t, data, decoded)
		assert.Equal(t, map[string]interface{}{"top": float64(10)}, entry.Metadata)
	})

	t.Run("file layout is key/version/key.json", func(t *testing.T) {
		path := filepath.Join(dir, "workspaces", "20240101_120000", "workspaces.json")
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("nil metadata becomes empty map", func(t *testing.T) {
		version, err := m.Save("apps", map[string]string{"a": "b"}, nil)
		require.NoError(t, err)

		entry, err := m.Load("apps", version)
		require.NoError(t, err)
		assert.NotNil(t, entry.Metadata)
		assert.Empty(t, entry.Metadata)
	})

	t.Run("unserializable data is rejected", func(t *testing.T) {
		_, err := m.Save("bad", func() {}, nil)
		assert.Error(t, err)
	})
}

func TestManagerLatest(t *testing.T) {
	m, _ := newTestManager(t)

	v1, err := m.Save("workspaces", map[string]interface{}{"value": []interface{}{map[string]interface{}{"id": "w1"}}}, nil)
	require.NoError(t, err)
	v2, err := m.Save("workspaces", map[string]interface{}{"value": []interface{}{}}, nil)
	require.NoError(t, err)
	require.Greater(t, v2, v1)

	t.Run("latest sentinel resolves to newest", func(t *testing.T) {
		entry, err := m.Load("workspaces", Latest)
		require.NoError(t, err)
		assert.Equal(t, v2, entry.Version)
		assert.JSONEq(t, `{"value":[]}`, string(entry.Data))
	})

	t.Run("empty version means latest", func(t *testing.T) {
		entry, err := m.Load("workspaces", "")
		require.NoError(t, err)
		assert.Equal(t, v2, entry.Version)
	})

	t.Run("explicit version still reachable", func(t *testing.T) {
		entry, err := m.Load("workspaces", v1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":[{"id":"w1"}]}`, string(entry.Data))
	})
}

func TestManagerMiss(t *testing.T) {
	m, _ := newTestManager(t)

	t.Run("never-written key", func(t *testing.T) {
		_, err := m.Load("unknown", Latest)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("absent literal version", func(t *testing.T) {
		_, err := m.Save("workspaces", map[string]string{"a": "b"}, nil)
		require.NoError(t, err)

		_, err = m.Load("workspaces", "19990101_000000")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("key directory with zero versions", func(t *testing.T) {
		m2, dir := newTestManager(t)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "hollow"), 0750))

		_, err := m2.Load("hollow", Latest)
		assert.ErrorIs(t, err, ErrCacheMiss)

		has, err := m2.Has("hollow")
		require.NoError(t, err)
		assert.False(t, has)

		keys, err := m2.ListKeys()
		require.NoError(t, err)
		assert.NotContains(t, keys, "hollow")
	})
}

func TestManagerCorrupt(t *testing.T) {
	m, dir := newTestManager(t)

	version, err := m.Save("workspaces", map[string]string{"a": "b"}, nil)
	require.NoError(t, err)
	path := filepath.Join(dir, "workspaces", version, "workspaces.json")

	t.Run("unparsable payload", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := m.Load("workspaces", version)
		assert.ErrorIs(t, err, ErrCacheCorrupt)
	})

	t.Run("missing required fields", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path,
			[]byte(`{"cached_at":"2024-01-01T12:00:00","version":"x","metadata":{}}`), 0600))

		_, err := m.Load("workspaces", version)
		assert.ErrorIs(t, err, ErrCacheCorrupt)
	})

	t.Run("corrupt entry is not auto-deleted", func(t *testing.T) {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})

	t.Run("rfc3339 cached_at still loads", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(
			`{"cache_key":"workspaces","cached_at":"2024-01-01T12:00:00Z","version":"`+version+`","metadata":{},"data":{"a":"b"}}`,
		), 0600))

		entry, err := m.Load("workspaces", version)
		require.NoError(t, err)
		assert.Equal(t, 2024, entry.CachedAt.Year())
	})
}

func TestManagerListVersions(t *testing.T) {
	m, dir := newTestManager(t)

	var created []string
	for i := 0; i < 3; i++ {
		v, err := m.Save("workspaces", map[string]int{"i": i}, nil)
		require.NoError(t, err)
		created = append(created, v)
	}

	t.Run("oldest first, matching creation order", func(t *testing.T) {
		versions, err := m.ListVersions("workspaces")
		require.NoError(t, err)
		assert.Equal(t, created, versions)
	})

	t.Run("foreign directories are ignored", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "workspaces", "not-a-version"), 0750))

		versions, err := m.ListVersions("workspaces")
		require.NoError(t, err)
		assert.Equal(t, created, versions)

		entry, err := m.Load("workspaces", Latest)
		require.NoError(t, err)
		assert.Equal(t, created[len(created)-1], entry.Version)
	})

	t.Run("unknown key lists empty", func(t *testing.T) {
		versions, err := m.ListVersions("unknown")
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("stamp directory without an envelope is ignored", func(t *testing.T) {
		// A hand-created stamp newer than every real snapshot must not
		// shadow "latest" into a miss.
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "workspaces", "20991231_235959"), 0750))

		versions, err := m.ListVersions("workspaces")
		require.NoError(t, err)
		assert.Equal(t, created, versions)

		entry, err := m.Load("workspaces", Latest)
		require.NoError(t, err)
		assert.Equal(t, created[len(created)-1], entry.Version)
	})
}

func TestManagerListKeys(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Save("workspaces", map[string]string{"a": "1"}, nil)
	require.NoError(t, err)
	_, err = m.Save("apps", map[string]string{"b": "2"}, nil)
	require.NoError(t, err)

	keys, err := m.ListKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"apps", "workspaces"}, keys)
}

func TestManagerClear(t *testing.T) {
	seed := func(t *testing.T) (*Manager, []string) {
		t.Helper()
		m, _ := newTestManager(t)
		var versions []string
		for i := 0; i < 2; i++ {
			v, err := m.Save("workspaces", map[string]int{"i": i}, nil)
			require.NoError(t, err)
			versions = append(versions, v)
		}
		_, err := m.Save("apps", map[string]string{"x": "y"}, nil)
		require.NoError(t, err)
		return m, versions
	}

	t.Run("clear one version", func(t *testing.T) {
		m, versions := seed(t)
		require.NoError(t, m.Clear("workspaces", versions[0]))

		remaining, err := m.ListVersions("workspaces")
		require.NoError(t, err)
		assert.Equal(t, versions[1:], remaining)
	})

	t.Run("clear key removes all versions", func(t *testing.T) {
		m, _ := seed(t)
		require.NoError(t, m.Clear("workspaces", ""))

		_, err := m.Load("workspaces", Latest)
		assert.ErrorIs(t, err, ErrCacheMiss)

		keys, err := m.ListKeys()
		require.NoError(t, err)
		assert.Equal(t, []string{"apps"}, keys)
	})

	t.Run("clear everything", func(t *testing.T) {
		m, _ := seed(t)
		require.NoError(t, m.Clear("", ""))

		keys, err := m.ListKeys()
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("clearing missing targets is a no-op", func(t *testing.T) {
		m, _ := seed(t)
		assert.NoError(t, m.Clear("never-written", ""))
		assert.NoError(t, m.Clear("workspaces", "19990101_000000"))
	})

	t.Run("version without key is rejected", func(t *testing.T) {
		m, _ := seed(t)
		err := m.Clear("", "20240101_120000")
		assert.ErrorIs(t, err, ErrInvalidCacheKey)
	})

	t.Run("save works again after full clear", func(t *testing.T) {
		m, _ := seed(t)
		require.NoError(t, m.Clear("", ""))

		_, err := m.Save("workspaces", map[string]string{"fresh": "data"}, nil)
		assert.NoError(t, err)
	})
}

func TestManagerDisabled(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "never-created")

	m, err := New(Config{Folder: folder, Enabled: false})
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	t.Run("all operations signal disabled", func(t *testing.T) {
		_, err := m.Save("workspaces", map[string]string{"a": "b"}, nil)
		assert.ErrorIs(t, err, ErrCacheDisabled)

		_, err = m.Load("workspaces", Latest)
		assert.ErrorIs(t, err, ErrCacheDisabled)

		_, err = m.ListKeys()
		assert.ErrorIs(t, err, ErrCacheDisabled)

		_, err = m.ListVersions("workspaces")
		assert.ErrorIs(t, err, ErrCacheDisabled)

		assert.ErrorIs(t, m.Clear("", ""), ErrCacheDisabled)

		_, err = m.Has("workspaces")
		assert.ErrorIs(t, err, ErrCacheDisabled)

		_, err = m.HasVersion("workspaces", "20240101_120000")
		assert.ErrorIs(t, err, ErrCacheDisabled)
	})

	t.Run("nothing is created on disk", func(t *testing.T) {
		_, err := os.Stat(folder)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestManagerSameSecondSaves(t *testing.T) {
	m, _ := newTestManager(t)

	frozen := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }

	v1, err := m.Save("workspaces", map[string]string{"gen": "first"}, nil)
	require.NoError(t, err)
	v2, err := m.Save("workspaces", map[string]string{"gen": "second"}, nil)
	require.NoError(t, err)

	// Same stamp: the later write replaces that second's payload.
	assert.Equal(t, v1, v2)

	entry, err := m.Load("workspaces", Latest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"gen":"second"}`, string(entry.Data))

	versions, err := m.ListVersions("workspaces")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestManagerInvalidKeys(t *testing.T) {
	m, _ := newTestManager(t)

	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		t.Run("key "+key, func(t *testing.T) {
			_, err := m.Save(key, map[string]string{"a": "b"}, nil)
			assert.ErrorIs(t, err, ErrInvalidCacheKey)

			_, err = m.Load(key, Latest)
			assert.ErrorIs(t, err, ErrInvalidCacheKey)
		})
	}
}

func TestManagerHas(t *testing.T) {
	m, _ := newTestManager(t)

	has, err := m.Has("workspaces")
	require.NoError(t, err)
	assert.False(t, has)

	version, err := m.Save("workspaces", map[string]string{"a": "b"}, nil)
	require.NoError(t, err)

	has, err = m.Has("workspaces")
	require.NoError(t, err)
	assert.True(t, has)

	hasVersion, err := m.HasVersion("workspaces", version)
	require.NoError(t, err)
	assert.True(t, hasVersion)

	hasVersion, err = m.HasVersion("workspaces", "19990101_000000")
	require.NoError(t, err)
	assert.False(t, hasVersion)
}

func TestManagerScenario(t *testing.T) {
	m, _ := newTestManager(t)

	v1, err := m.Save("workspaces",
		map[string]interface{}{"value": []interface{}{map[string]interface{}{"id": "w1"}}},
		map[string]interface{}{"top": 10})
	require.NoError(t, err)

	entry, err := m.Load("workspaces", Latest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":[{"id":"w1"}]}`, string(entry.Data))
	assert.Equal(t, map[string]interface{}{"top": float64(10)}, entry.Metadata)

	v2, err := m.Save("workspaces", map[string]interface{}{"value": []interface{}{}}, nil)
	require.NoError(t, err)
	assert.Greater(t, v2, v1)

	entry, err = m.Load("workspaces", Latest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":[]}`, string(entry.Data))

	require.NoError(t, m.Clear("workspaces", v1))

	versions, err := m.ListVersions("workspaces")
	require.NoError(t, err)
	assert.Equal(t, []string{v2}, versions)
}

func TestManagerWithInjectedBackend(t *testing.T) {
	backend := storage.NewLocalBackend(t.TempDir())
	m, err := New(Config{Enabled: true, Backend: backend})
	require.NoError(t, err)

	version, err := m.Save("reports", map[string]string{"name": "sales"}, nil)
	require.NoError(t, err)

	entry, err := m.Load("reports", version)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"sales"}`, string(entry.Data))
}

func TestNewManagerValidation(t *testing.T) {
	t.Run("enabled without folder fails", func(t *testing.T) {
		_, err := New(Config{Enabled: true})
		assert.Error(t, err)
	})

	t.Run("disabled without folder is fine", func(t *testing.T) {
		m, err := New(Config{Enabled: false})
		require.NoError(t, err)
		assert.False(t, m.Enabled())
	})
}
