package config

import (
	"log/slog"
	"os"
)

// RootEnvVar overrides system.root from the environment.
const RootEnvVar = "ORCHD_ROOT"

// Loader resolves a Config with layered precedence: defaults, then an
// optional config file, then the ORCHD_ROOT environment variable.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load resolves the final Config: defaults, overlaid by configPath's
// contents (if it exists), overlaid by ORCHD_ROOT (if set).
func (l *Loader) Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		var fileCfg Config
		if err := loadFromFile(configPath, &fileCfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			l.logger.Debug("no config file found", "path", configPath)
		} else {
			l.logger.Debug("loaded config file", "path", configPath)
			cfg.merge(&fileCfg)
		}
	}

	if root := os.Getenv(RootEnvVar); root != "" {
		cfg.System.Root = root
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
