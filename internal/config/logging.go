package config

import (
	"github.com/rshade/pbicli/internal/cache"
	"github.com/rshade/pbicli/internal/logging"
)

const outputTypeFile = "file"

// ToLoggingConfig converts the Logging section to a logging.Config for use
// with the internal/logging package. This bridges the configuration system
// to the logging infrastructure.
//
// The conversion applies these rules:
//   - Level and Format are copied directly
//   - If File is set, Output becomes "file" and File is passed through
//   - If File is empty, Output defaults to "stderr"
func (lc *LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = outputTypeFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
	}
}

// ToCacheConfig converts the Cache section to a cache.Config. The caller
// supplies the logger; the backend is resolved from the folder when the
// manager is constructed.
func (cs *CacheSettings) ToCacheConfig() cache.Config {
	return cache.Config{
		Folder:  cs.Folder,
		Enabled: cs.Enabled,
	}
}
