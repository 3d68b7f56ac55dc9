// Package config holds configuration for the tinykern commands.
package config

import (
	"os"
	"path/filepath"
)

// RunConfig holds configuration for the run command.
type RunConfig struct {
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json
	DBPath    string // SQLite run database (":memory:" for testing, "" to skip persistence)
	TraceFile string // Trace output path ("" for stdout)
	Quantum   int    // Low-tier round-robin time slice, in ticks
	MaxTicks  int    // Abort threshold for runaway simulations
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Quantum:   100,
		MaxTicks:  1_000_000,
	}
}

// ServeConfig holds configuration for the trace-viewer server.
type ServeConfig struct {
	Addr      string // Listen address (default ":8080")
	LogLevel  string
	LogFormat string
	DBPath    string
}

// DefaultServeConfig returns sensible defaults.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// DefaultDBPath is the run database used when --db is not given:
// ~/.tinykern/tinykern.db, created on demand.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".tinykern")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "tinykern.db"), nil
}
