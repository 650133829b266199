// Package config loads and persists pbicli configuration. Configuration
// lives in ~/.pbicli/config.yaml and can be overlaid by a project-local
// .pbicli.yaml discovered by walking up from the working directory. There
// is no package-level configuration state: callers construct a Config and
// pass it explicitly to the components that need it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables honored by the configuration loader.
const (
	// EnvConfigPath overrides the path of the global configuration file.
	EnvConfigPath = "PBICLI_CONFIG"
	// EnvHome overrides the pbicli configuration directory (~/.pbicli).
	EnvHome = "PBICLI_HOME"
)

const (
	// GlobalConfigFileName is the file name of the global configuration
	// inside the pbicli configuration directory.
	GlobalConfigFileName = "config.yaml"
	// LocalConfigFileName is the file name of the project-local overlay.
	LocalConfigFileName = ".pbicli.yaml"

	configDirPerm  = 0700
	configFilePerm = 0600
)

// DefaultProfileName is used when no active profile is configured.
const DefaultProfileName = "default"

// ProfileConfig identifies the Azure AD application used to sign in. Each
// profile maps to one tenant/app pair so users can switch between
// organizations without re-entering identifiers.
type ProfileConfig struct {
	TenantID string `yaml:"tenant_id,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
}

// CacheSettings configures the response cache.
type CacheSettings struct {
	// Folder is where entries are stored. Local paths may use "~", and
	// "s3://bucket/prefix" selects the S3 backend.
	Folder  string `yaml:"folder"`
	Enabled bool   `yaml:"enabled"`
}

// OutputConfig configures how command results are rendered and saved.
type OutputConfig struct {
	DefaultFolder string `yaml:"default_folder,omitempty"`
	Format        string `yaml:"format"`
}

// LoggingConfig configures log verbosity and destinations.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Config is the root configuration object. Zero values are not useful;
// construct one with New so defaults are applied.
type Config struct {
	ActiveProfile string                   `yaml:"active_profile"`
	Profiles      map[string]ProfileConfig `yaml:"profiles"`
	Cache         CacheSettings            `yaml:"cache"`
	Output        OutputConfig             `yaml:"output"`
	Logging       LoggingConfig            `yaml:"logging"`

	configPath string
}

// New creates a Config with defaults applied and, when the global
// configuration file exists, values loaded from it. A missing file is not
// an error. The file path comes from PBICLI_CONFIG when set, otherwise
// <config dir>/config.yaml.
func New() *Config {
	cfg := defaults()

	path, err := globalConfigPath()
	if err != nil {
		return cfg
	}
	cfg.configPath = path

	if _, statErr := os.Stat(path); statErr != nil {
		return cfg
	}
	// Best effort: an unreadable or malformed file leaves defaults intact.
	_ = cfg.loadFrom(path)
	return cfg
}

// NewDefault creates a Config with the built-in defaults and the global
// config path set, without reading any existing file. config init uses it
// so --force resets to defaults instead of re-saving current values.
func NewDefault() *Config {
	cfg := defaults()
	if path, err := globalConfigPath(); err == nil {
		cfg.configPath = path
	}
	return cfg
}

// defaults returns a Config populated with the built-in defaults.
func defaults() *Config {
	cacheFolder := defaultCacheFolder()

	return &Config{
		ActiveProfile: DefaultProfileName,
		Profiles: map[string]ProfileConfig{
			DefaultProfileName: {},
		},
		Cache: CacheSettings{
			Folder:  cacheFolder,
			Enabled: true,
		},
		Output: OutputConfig{
			Format: "table",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// defaultCacheFolder returns <config dir>/cache, falling back to a relative
// .pbicli-cache directory when the home directory cannot be determined.
func defaultCacheFolder() string {
	dir, err := GetConfigDir()
	if err != nil {
		return ".pbicli-cache"
	}
	return filepath.Join(dir, "cache")
}

// globalConfigPath resolves the location of the global configuration file.
func globalConfigPath() (string, error) {
	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		return explicit, nil
	}

	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, GlobalConfigFileName), nil
}

// loadFrom reads the YAML file at path onto the receiver.
func (c *Config) loadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if c.Profiles == nil {
		c.Profiles = map[string]ProfileConfig{DefaultProfileName: {}}
	}
	return nil
}

// ConfigPath returns the path this Config is saved to and loaded from.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes where Save writes the configuration.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Save writes the configuration to ConfigPath, creating the parent
// directory if needed. The file is written with owner-only permissions
// because profiles can name internal tenants.
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config path set")
	}

	if err := os.MkdirAll(filepath.Dir(c.configPath), configDirPerm); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, configFilePerm); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// Profile returns the named profile, or the active one when name is empty.
func (c *Config) Profile(name string) (ProfileConfig, error) {
	if name == "" {
		name = c.ActiveProfile
	}
	if name == "" {
		name = DefaultProfileName
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return ProfileConfig{}, fmt.Errorf("profile %q is not configured", name)
	}
	return profile, nil
}

// ResolveOutputPath decides where a saved result file goes. An absolute
// name wins; otherwise the name is joined onto the configured default
// output folder (or the working directory when none is set).
func (c *Config) ResolveOutputPath(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	if c.Output.DefaultFolder == "" {
		return name
	}
	return filepath.Join(expandHome(c.Output.DefaultFolder), name)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !filepath.IsAbs(path) && len(path) >= 2 && path[0] == '~' && path[1] == filepath.Separator {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	return path
}
