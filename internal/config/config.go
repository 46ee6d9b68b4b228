// Package config resolves the daemon's configuration. The core itself only
// ever sees a fully resolved, immutable Config value; this package is the
// external collaborator that produces one from defaults, an optional file,
// and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the resolved, immutable, process-lifetime configuration value.
type Config struct {
	System  SystemConfig  `yaml:"system"`
	Paths   PathsConfig   `yaml:"paths"`
	Watcher WatcherConfig `yaml:"watcher"`
	Agents  AgentsConfig  `yaml:"agents"`
}

// SystemConfig holds workspace-root and logging settings.
type SystemConfig struct {
	Root     string `yaml:"root"`
	LogLevel string `yaml:"log_level"`
}

// PathsConfig holds the watched/staged directory paths, resolved relative
// to System.Root when given as relative paths.
type PathsConfig struct {
	Inbox      string `yaml:"inbox"`
	Blueprints string `yaml:"blueprints"`
}

// WatcherConfig configures the FileWatcher's debounce and stability stages.
type WatcherConfig struct {
	DebounceMs     int  `yaml:"debounce_ms"`
	StabilityCheck bool `yaml:"stability_check"`
}

// AgentsConfig configures agent dispatch defaults.
type AgentsConfig struct {
	DefaultModel string `yaml:"default_model"`
	DefaultAgent string `yaml:"default_agent"`
}

// DefaultConfig returns a Config with the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			LogLevel: "info",
		},
		Paths: PathsConfig{
			Inbox:      "Inbox",
			Blueprints: "Blueprints",
		},
		Watcher: WatcherConfig{
			DebounceMs:     300,
			StabilityCheck: true,
		},
		Agents: AgentsConfig{
			DefaultModel: "anthropic:claude-sonnet",
			DefaultAgent: "generalist",
		},
	}
}

// Validate checks the resolved Config's invariants.
func (c *Config) Validate() error {
	if c.System.Root == "" {
		return fmt.Errorf("config: system.root is required")
	}
	if c.Watcher.DebounceMs <= 0 {
		return fmt.Errorf("config: watcher.debounce_ms must be positive")
	}
	if c.Agents.DefaultModel == "" {
		return fmt.Errorf("config: agents.default_model is required")
	}
	if c.Agents.DefaultAgent == "" {
		return fmt.Errorf("config: agents.default_agent is required")
	}
	return nil
}

// InboxRequestsDir, InboxPlansDir, ActivePlansDir and BlueprintsDir resolve
// the filesystem layout under System.Root.
func (c *Config) InboxRequestsDir() string { return filepath.Join(c.System.Root, c.Paths.Inbox, "Requests") }
func (c *Config) InboxPlansDir() string    { return filepath.Join(c.System.Root, c.Paths.Inbox, "Plans") }
func (c *Config) ActivePlansDir() string   { return filepath.Join(c.System.Root, "System", "Active") }
func (c *Config) BlueprintsDir() string    { return filepath.Join(c.System.Root, c.Paths.Blueprints) }
func (c *Config) JournalPath() string      { return filepath.Join(c.System.Root, "journal.db") }

// loadFromFile loads and merges a YAML config file's contents into c.
func loadFromFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// merge overlays non-zero fields from other onto c, other taking precedence.
func (c *Config) merge(other *Config) {
	if other.System.Root != "" {
		c.System.Root = other.System.Root
	}
	if other.System.LogLevel != "" {
		c.System.LogLevel = other.System.LogLevel
	}
	if other.Paths.Inbox != "" {
		c.Paths.Inbox = other.Paths.Inbox
	}
	if other.Paths.Blueprints != "" {
		c.Paths.Blueprints = other.Paths.Blueprints
	}
	if other.Watcher.DebounceMs != 0 {
		c.Watcher.DebounceMs = other.Watcher.DebounceMs
	}
	// StabilityCheck has no meaningful "unset" zero value distinct from
	// false, so a file can turn the check on, but a false in the file is
	// treated as unset and leaves the current value in place.
	c.Watcher.StabilityCheck = other.Watcher.StabilityCheck || c.Watcher.StabilityCheck
	if other.Agents.DefaultModel != "" {
		c.Agents.DefaultModel = other.Agents.DefaultModel
	}
	if other.Agents.DefaultAgent != "" {
		c.Agents.DefaultAgent = other.Agents.DefaultAgent
	}
}
