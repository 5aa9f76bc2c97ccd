// Package config loads glinvent's YAML configuration. A global file under
// the user config directory provides defaults; a local .glinvent.yaml in
// the working directory overrides it; command-line flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server          string   `yaml:"server,omitempty"` // GitLab host, e.g. gitlab.example.com
	Workers         int      `yaml:"workers,omitempty"`
	PageSize        int      `yaml:"page_size,omitempty"`
	OutputDir       string   `yaml:"output_dir,omitempty"`
	IncludeArchived bool     `yaml:"include_archived,omitempty"`
	ExcludeGroups   []string `yaml:"exclude_groups,omitempty"`

	Aggregate *AggregateDefaults `yaml:"aggregate,omitempty"`
	Request   *RequestOverrides  `yaml:"request,omitempty"`
}

// AggregateDefaults pre-enables the optional, more expensive sub-crawls so
// recurring runs don't need the flags every time.
type AggregateDefaults struct {
	Notes          *bool `yaml:"notes,omitempty"`
	CommitComments *bool `yaml:"commit_comments,omitempty"`
	RepoSize       *bool `yaml:"repo_size,omitempty"`
}

// RequestOverrides tunes the HTTP layer.
type RequestOverrides struct {
	TimeoutSeconds *int `yaml:"timeout_seconds,omitempty"`
	Retries        *int `yaml:"retries,omitempty"`
	MaxInFlight    *int `yaml:"max_in_flight,omitempty"`
}

// DefaultConfigDir returns the directory holding the global config file.
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".glinvent"
	}
	return filepath.Join(configDir, "glinvent")
}

// ConfigPath returns the path of the global config file.
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the per-directory override file.
func LocalConfigPath() string {
	return ".glinvent.yaml"
}

// Load reads the global config, merges the local override on top, and
// applies environment defaults for values still unset.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadFile(ConfigPath(), cfg); err != nil {
		return nil, err
	}

	var local Config
	if err := loadFile(LocalConfigPath(), &local); err != nil {
		return nil, err
	}
	merge(cfg, &local)

	if cfg.Server == "" {
		cfg.Server = os.Getenv("GITLAB_HOST")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return cfg, nil
}

// Token returns the API token from the environment. Tokens are never read
// from config files so they don't end up committed alongside one.
func (c *Config) Token() string {
	return os.Getenv("GITLAB_TOKEN")
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// merge overlays local onto global; set local values win.
func merge(global, local *Config) {
	if local.Server != "" {
		global.Server = local.Server
	}
	if local.Workers > 0 {
		global.Workers = local.Workers
	}
	if local.PageSize > 0 {
		global.PageSize = local.PageSize
	}
	if local.OutputDir != "" {
		global.OutputDir = local.OutputDir
	}
	if local.IncludeArchived {
		global.IncludeArchived = true
	}
	if len(local.ExcludeGroups) > 0 {
		global.ExcludeGroups = local.ExcludeGroups
	}
	if local.Aggregate != nil {
		if global.Aggregate == nil {
			global.Aggregate = &AggregateDefaults{}
		}
		if local.Aggregate.Notes != nil {
			global.Aggregate.Notes = local.Aggregate.Notes
		}
		if local.Aggregate.CommitComments != nil {
			global.Aggregate.CommitComments = local.Aggregate.CommitComments
		}
		if local.Aggregate.RepoSize != nil {
			global.Aggregate.RepoSize = local.Aggregate.RepoSize
		}
	}
	if local.Request != nil {
		if global.Request == nil {
			global.Request = &RequestOverrides{}
		}
		if local.Request.TimeoutSeconds != nil {
			global.Request.TimeoutSeconds = local.Request.TimeoutSeconds
		}
		if local.Request.Retries != nil {
			global.Request.Retries = local.Request.Retries
		}
		if local.Request.MaxInFlight != nil {
			global.Request.MaxInFlight = local.Request.MaxInFlight
		}
	}
}
