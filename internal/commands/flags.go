// Package commands implements the daycart CLI commands.
package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/daycart/internal/core/config"
	"github.com/colonyops/daycart/internal/daycart"
)

// Flags carries global flag values plus the dependencies the Before hook
// wires up for every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	StateFile  string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// App is the daycart application container
	App *daycart.App
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "daycart", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "daycart")
}

// DefaultLogFile returns the default log file path using the system's state
// directory. On macOS: ~/Library/Logs/daycart/daycart.log. On Linux:
// $XDG_STATE_HOME/daycart/daycart.log.
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "daycart", "daycart.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "daycart", "daycart.log")
	}

	return filepath.Join(home, ".local", "state", "daycart", "daycart.log")
}
