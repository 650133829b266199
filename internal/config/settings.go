package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Settings validation errors.
var (
	ErrUnknownSetting  = errors.New("unknown setting")
	ErrProfileRequired = errors.New("profile name is required")
)

// Output formats accepted for output.format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

const (
	profilePathParts = 3
	sectionKeyParts  = 2
)

// Get returns the value at a dot-separated settings path, for example
// "cache.folder" or "profiles.work.tenant_id". Section paths such as
// "cache" return the whole section.
func (c *Config) Get(path string) (interface{}, error) {
	parts := strings.Split(path, ".")

	switch parts[0] {
	case keyActiveProfile:
		if len(parts) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, path)
		}
		return c.ActiveProfile, nil
	case keyProfiles:
		return c.getProfile(path, parts)
	case keyCache:
		return c.getCache(path, parts)
	case keyOutput:
		return c.getOutput(path, parts)
	case keyLogging:
		return c.getLogging(path, parts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, path)
	}
}

func (c *Config) getProfile(path string, parts []string) (interface{}, error) {
	switch len(parts) {
	case 1:
		return c.Profiles, nil
	case sectionKeyParts:
		profile, ok := c.Profiles[parts[1]]
		if !ok {
			return nil, fmt.Errorf("profile %q is not configured", parts[1])
		}
		return profile, nil
	case profilePathParts:
		profile, ok := c.Profiles[parts[1]]
		if !ok {
			return nil, fmt.Errorf("profile %q is not configured", parts[1])
		}
		switch parts[2] {
		case "tenant_id":
			return profile.TenantID, nil
		case "client_id":
			return profile.ClientID, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, path)
}

func (c *Config) getCache(path string, parts []string) (interface{}, error) {
	if len(parts) == 1 {
		return c.Cache, nil
	}
	if len(parts) == sectionKeyParts {
		switch parts[1] {
		case "folder":
			return c.Cache.Folder, nil
		case "enabled":
			return c.Cache.Enabled, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, path)
}

func (c *Config) getOutput(path string, parts []string) (interface{}, error) {
	if len(parts) == 1 {
		return c.Output, nil
	}
	if len(parts) == sectionKeyParts {
		switch parts[1] {
		case "default_folder":
			return c.Output.DefaultFolder, nil
		case "format":
			return c.Output.Format, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, path)
}

func (c *Config) getLogging(path string, parts []string) (interface{}, error) {
	if len(parts) == 1 {
		return c.Logging, nil
	}
	if len(parts) == sectionKeyParts {
		switch parts[1] {
		case "level":
			return c.Logging.Level, nil
		case "format":
			return c.Logging.Format, nil
		case "file":
			return c.Logging.File, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, path)
}

// Set assigns the value at a dot-separated settings path. Values are
// parsed according to the setting's type; booleans must be "true" or
// "false". Setting a field under a profile that does not exist creates
// the profile.
func (c *Config) Set(path, value string) error {
	parts := strings.Split(path, ".")

	switch parts[0] {
	case keyActiveProfile:
		if len(parts) != 1 {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, path)
		}
		if value == "" {
			return ErrProfileRequired
		}
		c.ActiveProfile = value
		return nil
	case keyProfiles:
		return c.setProfile(path, parts, value)
	case keyCache:
		return c.setCache(path, parts, value)
	case keyOutput:
		return c.setOutput(path, parts, value)
	case keyLogging:
		return c.setLogging(path, parts, value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, path)
	}
}

func (c *Config) setProfile(path string, parts []string, value string) error {
	if len(parts) != profilePathParts {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, path)
	}
	name := parts[1]
	if name == "" {
		return ErrProfileRequired
	}

	if c.Profiles == nil {
		c.Profiles = map[string]ProfileConfig{}
	}
	profile := c.Profiles[name]

	switch parts[2] {
	case "tenant_id":
		profile.TenantID = value
	case "client_id":
		profile.ClientID = value
	default:
		return fmt.Errorf("unknown profile setting: %s", parts[2])
	}

	c.Profiles[name] = profile
	return nil
}

func (c *Config) setCache(path string, parts []string, value string) error {
	if len(parts) != sectionKeyParts {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, path)
	}
	switch parts[1] {
	case "folder":
		c.Cache.Folder = value
		return nil
	case "enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean, got %q", value)
		}
		c.Cache.Enabled = enabled
		return nil
	default:
		return fmt.Errorf("unknown cache setting: %s", parts[1])
	}
}

func (c *Config) setOutput(path string, parts []string, value string) error {
	if len(parts) != sectionKeyParts {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, path)
	}
	switch parts[1] {
	case "default_folder":
		c.Output.DefaultFolder = value
		return nil
	case "format":
		if value != FormatTable && value != FormatJSON {
			return fmt.Errorf("output.format must be %q or %q, got %q", FormatTable, FormatJSON, value)
		}
		c.Output.Format = value
		return nil
	default:
		return fmt.Errorf("unknown output setting: %s", parts[1])
	}
}

func (c *Config) setLogging(path string, parts []string, value string) error {
	if len(parts) != sectionKeyParts {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, path)
	}
	switch parts[1] {
	case "level":
		c.Logging.Level = value
		return nil
	case "format":
		c.Logging.Format = value
		return nil
	case "file":
		c.Logging.File = value
		return nil
	default:
		return fmt.Errorf("unknown logging setting: %s", parts[1])
	}
}

// List returns every leaf setting as a dot-path keyed map. Keys come back
// sorted so command output is stable.
func (c *Config) List() []Setting {
	values := map[string]interface{}{
		keyActiveProfile:        c.ActiveProfile,
		"cache.folder":          c.Cache.Folder,
		"cache.enabled":         c.Cache.Enabled,
		"output.default_folder": c.Output.DefaultFolder,
		"output.format":         c.Output.Format,
		"logging.level":         c.Logging.Level,
		"logging.format":        c.Logging.Format,
		"logging.file":          c.Logging.File,
	}
	for name, profile := range c.Profiles {
		values["profiles."+name+".tenant_id"] = profile.TenantID
		values["profiles."+name+".client_id"] = profile.ClientID
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	settings := make([]Setting, 0, len(keys))
	for _, key := range keys {
		settings = append(settings, Setting{Key: key, Value: values[key]})
	}
	return settings
}

// Setting is one leaf configuration value, identified by its dot path.
type Setting struct {
	Key   string
	Value interface{}
}
