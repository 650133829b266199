package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rshade/pbicli/internal/logging"
)

// FindLocalConfig walks up from startDir looking for a .pbicli.yaml
// overlay file. It returns the file's absolute path, or an empty string
// when no overlay exists between startDir and the filesystem root.
// Discovery is read-only.
func FindLocalConfig(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, LocalConfigFileName)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NewWithLocalConfig creates a Config by loading the global configuration
// and shallow-merging the overlay file at overlayPath on top. If
// overlayPath is empty, it behaves identically to New().
func NewWithLocalConfig(ctx context.Context, overlayPath string) *Config {
	cfg := New()

	if overlayPath == "" {
		return cfg
	}

	if _, err := os.Stat(overlayPath); err != nil {
		// Missing overlay is not an error, use global settings.
		return cfg
	}

	merged := New()
	if err := ShallowMergeYAML(merged, overlayPath); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("component", "config").
			Str("operation", "merge_local_config").
			Err(err).
			Str("overlay_path", overlayPath).
			Msg("failed to merge local config, using global settings")
		return cfg
	}

	return merged
}
