package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryMarshal(t *testing.T) {
	cachedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	entry := Entry{
		CacheKey: "workspaces",
		CachedAt: cachedAt,
		Version:  "20240101_120000",
		Metadata: map[string]interface{}{"endpoint": "groups", "top": 10},
		Data:     json.RawMessage(`{"value":[{"id":"abc","name":"Sales"}]}`),
	}

	raw, err := json.Marshal(&entry)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"cache_key": "workspaces",
		"cached_at": "2024-01-01T12:00:00",
		"version": "20240101_120000",
		"metadata": {"endpoint": "groups", "top": 10},
		"data": {"value": [{"id": "abc", "name": "Sales"}]}
	}`, string(raw))
}

func TestEntryMarshalNilMetadata(t *testing.T) {
	entry := Entry{
		CacheKey: "apps",
		CachedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Version:  "20240101_120000",
		Data:     json.RawMessage(`{}`),
	}

	raw, err := json.Marshal(&entry)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"metadata":{}`)
}

func TestEntryUnmarshal(t *testing.T) {
	t.Run("local timestamp layout", func(t *testing.T) {
		var entry Entry
		err := json.Unmarshal([]byte(`{
			"cache_key": "workspaces",
			"cached_at": "2024-01-01T12:00:00",
			"version": "20240101_120000",
			"metadata": {},
			"data": {"value": []}
		}`), &entry)
		require.NoError(t, err)

		assert.Equal(t, "workspaces", entry.CacheKey)
		assert.Equal(t, "2024-01-01T12:00:00", entry.CachedAt.Format(cachedAtLayout))
	})

	t.Run("rfc3339 timestamp accepted", func(t *testing.T) {
		var entry Entry
		err := json.Unmarshal([]byte(`{
			"cache_key": "workspaces",
			"cached_at": "2024-01-01T12:00:00Z",
			"version": "20240101_120000",
			"metadata": {},
			"data": {"value": []}
		}`), &entry)
		require.NoError(t, err)
		assert.Equal(t, 12, entry.CachedAt.Hour())
	})

	t.Run("garbage timestamp errors", func(t *testing.T) {
		var entry Entry
		err := json.Unmarshal([]byte(`{
			"cache_key": "workspaces",
			"cached_at": "yesterday",
			"version": "20240101_120000",
			"data": {}
		}`), &entry)
		assert.Error(t, err)
	})
}

func TestEntryRoundTrip(t *testing.T) {
	original := NewEntry("reports",
		"20240315_093000",
		time.Date(2024, 3, 15, 9, 30, 0, 0, time.Local),
		map[string]interface{}{"workspace": "w1"},
		json.RawMessage(`{"value":[{"id":"r1"}]}`))

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Entry
	require.NoError(t, json.Unmarshal(raw, &restored))

	assert.Equal(t, original.CacheKey, restored.CacheKey)
	assert.Equal(t, original.Version, restored.Version)
	assert.Equal(t, original.Metadata, restored.Metadata)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
	assert.Equal(t,
		original.CachedAt.Format(cachedAtLayout),
		restored.CachedAt.Format(cachedAtLayout))
}

func TestEntryValidate(t *testing.T) {
	valid := Entry{CacheKey: "workspaces", Data: json.RawMessage(`{}`)}
	assert.NoError(t, valid.validate())

	missingKey := Entry{Data: json.RawMessage(`{}`)}
	assert.Error(t, missingKey.validate())

	missingData := Entry{CacheKey: "workspaces"}
	assert.Error(t, missingData.validate())
}

func TestEntryDecodeData(t *testing.T) {
	entry := Entry{Data: json.RawMessage(`{"value":[{"id":"w1"},{"id":"w2"}]}`)}

	var payload struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	require.NoError(t, entry.DecodeData(&payload))
	require.Len(t, payload.Value, 2)
	assert.Equal(t, "w2", payload.Value[1].ID)
}

func TestEntryAge(t *testing.T) {
	entry := Entry{CachedAt: time.Now().Add(-2 * time.Hour)}
	age := entry.Age()
	assert.GreaterOrEqual(t, age, 2*time.Hour)
	assert.Less(t, age, 2*time.Hour+time.Minute)
}
