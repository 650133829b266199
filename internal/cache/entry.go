package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// cachedAtLayout is the on-disk format of the write timestamp: local time at
// second precision, no zone suffix. RFC3339 values are also accepted on read
// so entries touched by other tooling still load.
const cachedAtLayout = "2006-01-02T15:04:05"

// Entry is the persisted unit: one snapshot of one logical dataset, together
// with the request parameters that produced it. Entries are immutable after
// creation.
type Entry struct {
	// CacheKey is the logical dataset name, e.g. "workspaces".
	CacheKey string `json:"cache_key"`

	// CachedAt is the wall-clock write time.
	CachedAt time.Time `json:"cached_at"`

	// Version is the timestamp stamp this snapshot is addressed by.
	Version string `json:"version"`

	// Metadata captures the request parameters used to produce Data
	// (filters, expand lists, limits). Never null on disk.
	Metadata map[string]interface{} `json:"metadata"`

	// Data is the raw API response body.
	Data json.RawMessage `json:"data"`
}

// NewEntry builds an entry for data produced at the given time. A nil
// metadata map is stored as an empty one.
func NewEntry(key, version string, cachedAt time.Time, metadata map[string]interface{}, data json.RawMessage) *Entry {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &Entry{
		CacheKey: key,
		CachedAt: cachedAt,
		Version:  version,
		Metadata: metadata,
		Data:     data,
	}
}

// DecodeData unmarshals the entry payload into v.
func (e *Entry) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Age returns the duration since the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// validate reports whether the entry carries the fields a well-formed
// envelope must have. Version and key mismatches against the path are
// tolerated by the reader; absence is not.
func (e *Entry) validate() error {
	if e.CacheKey == "" {
		return errors.New("missing cache_key")
	}
	if len(e.Data) == 0 {
		return errors.New("missing data")
	}
	return nil
}

// MarshalJSON formats cached_at with the on-disk layout.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type Alias Entry

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return json.Marshal(&struct {
		*Alias

		CachedAt string                 `json:"cached_at"`
		Metadata map[string]interface{} `json:"metadata"`
	}{
		Alias:    (*Alias)(e),
		CachedAt: e.CachedAt.Format(cachedAtLayout),
		Metadata: metadata,
	})
}

// UnmarshalJSON parses cached_at using the on-disk layout with an RFC3339
// fallback.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}
	type Alias Entry
	aux := &struct {
		*Alias

		CachedAt string `json:"cached_at"`
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	cachedAt, err := parseCachedAt(aux.CachedAt)
	if err != nil {
		return err
	}
	e.CachedAt = cachedAt
	return nil
}

func parseCachedAt(s string) (time.Time, error) {
	if t, err := time.Parse(cachedAtLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
