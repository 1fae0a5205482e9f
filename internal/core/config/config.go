// Package config handles configuration loading and validation for daycart.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Polling bounds. The configured interval is clamped into this range so a
// typo'd config cannot hammer the GitHub API or stall status updates.
const (
	DefaultPollIntervalSeconds = 30
	MinPollIntervalSeconds     = 10
	MaxPollIntervalSeconds     = 120
)

// RateLimitWarnThreshold is the remaining-quota level below which the poller
// starts surfacing low-quota warnings.
const RateLimitWarnThreshold = 100

// ClaudeMdCacheTTLSeconds is how long a cached CLAUDE.md blob stays fresh.
const ClaudeMdCacheTTLSeconds = 3600

// StateFileEnvVar overrides the state file path when set. Highest priority
// in the resolution order.
const StateFileEnvVar = "DAYCART_STATE"

// Config holds the application configuration.
type Config struct {
	// PollIntervalSeconds is the delay between GitHub poll cycles,
	// clamped to [MinPollIntervalSeconds, MaxPollIntervalSeconds].
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// CompletionResetHour shifts the daily completion counter's day
	// boundary backwards, so late-night work still counts as "today".
	// Valid range 0-23.
	CompletionResetHour int `yaml:"completion_reset_hour"`

	// StateFile overrides the shared state file path. Empty means the
	// default under the user config directory.
	StateFile string `yaml:"state_file"`

	// DataDir is where daycart keeps its own files (settings kv, logs).
	// Set by the caller, not from the config file.
	DataDir string `yaml:"-"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		PollIntervalSeconds: DefaultPollIntervalSeconds,
		CompletionResetHour: 0,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the
// provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := Default()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if c.PollIntervalSeconds < MinPollIntervalSeconds {
		c.PollIntervalSeconds = MinPollIntervalSeconds
	}
	if c.PollIntervalSeconds > MaxPollIntervalSeconds {
		c.PollIntervalSeconds = MaxPollIntervalSeconds
	}
}

// Validate checks invariants that clamping cannot fix.
func (c *Config) Validate() error {
	if c.CompletionResetHour < 0 || c.CompletionResetHour > 23 {
		return fmt.Errorf("completion_reset_hour must be 0-23, got %d", c.CompletionResetHour)
	}
	return nil
}

// StateFilePath resolves the shared state file path. Priority: DAYCART_STATE
// env var, then the config file setting, then the default under the user
// config directory.
func (c *Config) StateFilePath() string {
	if env := os.Getenv(StateFileEnvVar); env != "" {
		return env
	}
	if c.StateFile != "" {
		return c.StateFile
	}
	return DefaultStateFilePath()
}

// DefaultStateFilePath returns ~/.config/daycart/state.json (honoring
// XDG_CONFIG_HOME).
func DefaultStateFilePath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "daycart", "state.json")
}

// SettingsPath returns the path of the settings KV file inside DataDir.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}
