package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetConfigDir returns the path to the pbicli configuration directory.
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pbicli"), nil
}

// EnsureConfigDir ensures the pbicli configuration directory exists.
// It returns an error if the configuration directory path cannot be
// determined or if creating the directory fails.
func EnsureConfigDir() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, configDirPerm)
}

// CredentialsPath returns the path of the token store shared by all
// profiles (~/.pbicli/credentials.json).
func CredentialsPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// EnsureLogDir creates the parent directory of the configured log file.
// If no log file is configured, it does nothing.
func (c *Config) EnsureLogDir() error {
	if c.Logging.File == "" {
		return nil
	}
	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}
