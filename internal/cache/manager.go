package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/pbicli/internal/storage"
)

// entryFileExtension is the file extension used for cache entries.
const entryFileExtension = ".json"

// Cache errors. Policy decisions belong to callers: a miss triggers a live
// fetch in use-cache mode and a hard failure in cache-only mode; disabled
// always means fall back to a live fetch.
var (
	ErrCacheDisabled   = errors.New("cache is disabled")
	ErrCacheMiss       = errors.New("cache entry not found")
	ErrCacheCorrupt    = errors.New("cache entry is corrupt")
	ErrInvalidCacheKey = errors.New("invalid cache key")
)

// Config carries the cache settings into the constructor. There is no
// process-wide cache state; every Manager owns exactly what it was given.
type Config struct {
	// Folder is the cache root: a local path (with ~ expansion) or an
	// s3://bucket/prefix URI. The backend is chosen from the scheme once,
	// at construction.
	Folder string

	// Enabled gates every operation. A disabled manager constructs fine,
	// touches nothing on disk, and answers ErrCacheDisabled to all calls.
	Enabled bool

	// Backend overrides Folder resolution when set. Intended for tests and
	// callers with bespoke client configuration.
	Backend storage.Backend

	// Logger receives cache operation events. The zero value is silent.
	Logger zerolog.Logger
}

// Manager persists and retrieves versioned JSON snapshots. One snapshot is
// written per Save under <folder>/<key>/<version>/<key>.json; snapshots are
// never mutated and only an explicit Clear removes them.
//
// Two saves of the same key within one second reuse the version stamp; the
// later write replaces that second's payload. Callers that need distinct
// versions faster than that inject their own clock.
type Manager struct {
	backend storage.Backend
	enabled bool
	logger  zerolog.Logger

	// now stamps new versions; tests substitute it instead of sleeping.
	now func() time.Time
}

// New builds a Manager from cfg. Disabled configurations return a manager
// whose operations all fail with ErrCacheDisabled without any backend I/O.
func New(cfg Config) (*Manager, error) {
	m := &Manager{
		enabled: cfg.Enabled,
		logger:  cfg.Logger,
		now:     time.Now,
	}

	if !cfg.Enabled {
		return m, nil
	}

	backend := cfg.Backend
	if backend == nil {
		var err error
		backend, err = storage.Resolve(cfg.Folder)
		if err != nil {
			return nil, fmt.Errorf("resolving cache folder: %w", err)
		}
	}
	m.backend = backend

	return m, nil
}

// Enabled reports whether the manager performs any storage I/O.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Save serializes data, stamps a version from the current time, and writes
// the entry envelope. It returns the generated version. Metadata records the
// request parameters that produced data and may be nil.
func (m *Manager) Save(key string, data interface{}, metadata map[string]interface{}) (string, error) {
	if !m.enabled {
		return "", ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return "", err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("serializing data for key %s: %w", key, err)
	}

	stamp := m.now()
	version := NewVersionStamp(stamp)
	entry := NewEntry(key, version, stamp, metadata, raw)

	payload, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing cache entry %s/%s: %w", key, version, err)
	}

	if err := m.backend.WriteFile(m.entryPath(key, version), payload); err != nil {
		return "", fmt.Errorf("saving cache entry %s/%s: %w", key, version, err)
	}

	m.logger.Debug().
		Str("key", key).
		Str("version", version).
		Int("bytes", len(payload)).
		Msg("cache entry saved")

	return version, nil
}

// Load reads one entry. The version may be a literal stamp or Latest (an
// empty string means Latest). A key with no versions, or an absent literal
// version, fails with ErrCacheMiss; an unreadable or field-incomplete
// envelope fails with ErrCacheCorrupt and is left in place for inspection.
func (m *Manager) Load(key, version string) (*Entry, error) {
	if !m.enabled {
		return nil, ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	if isLatest(version) {
		versions, err := m.ListVersions(key)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("key %s: %w", key, ErrCacheMiss)
		}
		version = versions[len(versions)-1]
	}

	path := m.entryPath(key, version)
	data, err := m.backend.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("key %s version %s: %w", key, version, ErrCacheMiss)
		}
		return nil, fmt.Errorf("loading cache entry %s/%s: %w", key, version, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("entry %s/%s: %w: %w", key, version, ErrCacheCorrupt, err)
	}
	if err := entry.validate(); err != nil {
		return nil, fmt.Errorf("entry %s/%s: %w: %w", key, version, ErrCacheCorrupt, err)
	}

	// The path is authoritative when an envelope was copied between version
	// directories by hand.
	entry.Version = version

	return &entry, nil
}

// ListKeys returns the keys that currently hold at least one version,
// sorted ascending. A key directory with no versions is reported no
// differently from a key that was never written.
func (m *Manager) ListKeys() ([]string, error) {
	if !m.enabled {
		return nil, ErrCacheDisabled
	}

	dirs, err := m.backend.ListDirs("")
	if err != nil {
		return nil, fmt.Errorf("listing cache keys: %w", err)
	}

	var keys []string
	for _, dir := range dirs {
		versions, err := m.ListVersions(dir)
		if err != nil {
			return nil, err
		}
		if len(versions) > 0 {
			keys = append(keys, dir)
		}
	}
	return keys, nil
}

// ListVersions returns the version stamps recorded for key, oldest first.
// Directory names that are not well-formed stamps, and stamp directories
// with no envelope file inside, are skipped so they can never corrupt
// "latest" ordering.
func (m *Manager) ListVersions(key string) ([]string, error) {
	if !m.enabled {
		return nil, ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	dirs, err := m.backend.ListDirs(key)
	if err != nil {
		return nil, fmt.Errorf("listing versions for key %s: %w", key, err)
	}

	versions := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if !IsVersionStamp(dir) {
			m.logger.Warn().
				Str("key", key).
				Str("entry", dir).
				Msg("ignoring non-version directory in cache")
			continue
		}
		exists, err := m.backend.Exists(m.entryPath(key, dir))
		if err != nil {
			return nil, fmt.Errorf("checking cache entry %s/%s: %w", key, dir, err)
		}
		if !exists {
			m.logger.Warn().
				Str("key", key).
				Str("version", dir).
				Msg("ignoring version directory without an envelope file")
			continue
		}
		versions = append(versions, dir)
	}
	return versions, nil
}

// Clear removes cache contents. With no key it clears the entire root; with
// a key it removes all of that key's versions; with a key and version it
// removes exactly one snapshot. Missing targets are a no-op.
func (m *Manager) Clear(key, version string) error {
	if !m.enabled {
		return ErrCacheDisabled
	}

	var target string
	switch {
	case key == "" && version == "":
		target = ""
	case key == "" && version != "":
		return fmt.Errorf("%w: clearing a version requires a key", ErrInvalidCacheKey)
	default:
		if err := validateKey(key); err != nil {
			return err
		}
		target = key
		if version != "" {
			target = m.backend.Join(key, version)
		}
	}

	if err := m.backend.RemoveAll(target); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	m.logger.Debug().
		Str("key", key).
		Str("version", version).
		Msg("cache cleared")

	return nil
}

// Has reports whether key holds at least one version, without reading any
// payload.
func (m *Manager) Has(key string) (bool, error) {
	if !m.enabled {
		return false, ErrCacheDisabled
	}
	versions, err := m.ListVersions(key)
	if err != nil {
		return false, err
	}
	return len(versions) > 0, nil
}

// HasVersion reports whether a specific snapshot exists, without reading it.
func (m *Manager) HasVersion(key, version string) (bool, error) {
	if !m.enabled {
		return false, ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return false, err
	}
	exists, err := m.backend.Exists(m.entryPath(key, version))
	if err != nil {
		return false, fmt.Errorf("checking cache entry %s/%s: %w", key, version, err)
	}
	return exists, nil
}

// entryPath builds the backend-relative path of a snapshot's envelope file.
func (m *Manager) entryPath(key, version string) string {
	return m.backend.Join(key, version, key+entryFileExtension)
}

// validateKey rejects keys that cannot serve as a single path element.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidCacheKey)
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidCacheKey, key)
	}
	if strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, 0) {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidCacheKey, key)
	}
	return nil
}
