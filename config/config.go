package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/treefs/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI verbosity values accepted by [ConfigOverride.LogLvl].
const (
	ErrorVerbose = 1
	WarnVerbose  = 2
	InfoVerbose  = 3
	DebugVerbose = 4
	TraceVerbose = 5
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl            = util.InfoLevel
	DefaultUser              = 0
	DefaultIgnorePermissions = false
	DefaultReadOnlyRoot      = true
	DefaultFsName            = "treefs"
	DefaultName              = "treefs"
)

// Config contains runtime configuration values for a filesystem instance.
type Config struct {
	MountOptions
	LogLvl            util.LogLevel // Internal log level (Default info)
	User              int64         // Acting user id for per-user permission overrides (Default 0)
	IgnorePermissions bool          // Skip read/write flag checks (Default false)
	ReadOnlyRoot      bool          // Apply the read-only preset to a newly created root directory (Default true)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a CLI verbosity between 1 (error) and 5 (trace); out of
	// range values are clamped.
	LogLvl            *int    `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	User              *int64  `yaml:"user,omitempty" json:"user,omitempty"`
	IgnorePermissions *bool   `yaml:"ignore_permissions,omitempty" json:"ignore_permissions,omitempty"`
	ReadOnlyRoot      *bool   `yaml:"readonly_root,omitempty" json:"readonly_root,omitempty"`
	Debug             *bool   `yaml:"fuse_debug,omitempty" json:"fuse_debug,omitempty"`
	FsName            *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name              *string `yaml:"name,omitempty" json:"name,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:            DefaultLogLvl,
		User:              DefaultUser,
		IgnorePermissions: DefaultIgnorePermissions,
		ReadOnlyRoot:      DefaultReadOnlyRoot,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if override.User != nil {
		c.User = *override.User
	}
	if override.IgnorePermissions != nil {
		c.IgnorePermissions = *override.IgnorePermissions
	}
	if override.ReadOnlyRoot != nil {
		c.ReadOnlyRoot = *override.ReadOnlyRoot
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
