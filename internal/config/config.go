// Package config provides unified configuration loading for glitchsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/logging"
	"gopkg.in/yaml.v3"
)

// GlitchsimConfig contains all glitchsim configuration settings.
type GlitchsimConfig struct {
	// Logging contains settings for operational and attempt logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for the attempt history database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Sweep contains defaults for the glitch-window sweep.
	Sweep SweepConfig `json:"sweep" yaml:"sweep"`

	// Trace contains defaults for trace export.
	Trace TraceConfig `json:"trace" yaml:"trace"`

	// MCP contains settings for the MCP server.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`
}

// LoggingConfig configures glitchsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables attempt logging to ~/.glitchsim/attempts.jsonl.
	// "trace" additionally logs every simulated tick.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures attempt history.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means ~/.glitchsim/attempts.db.
	// Supports ${VAR} expansion.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Record enables recording of every evaluation.
	Record bool `json:"record" yaml:"record"`
}

// SweepConfig configures the concurrent sweep.
type SweepConfig struct {
	// Workers is the number of concurrent evaluations.
	Workers int `json:"workers" yaml:"workers"`

	// Seed seeds random candidate generation.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// TraceConfig configures trace export.
type TraceConfig struct {
	// Format is the default export format: table, csv, parquet or plot.
	Format string `json:"format" yaml:"format"`
}

// MCPConfig configures per-tool call budgets. Zero disables a limit.
type MCPConfig struct {
	EvaluatePerMinute float64 `json:"evaluate_per_minute" yaml:"evaluate_per_minute"`
	HistoryPerMinute  float64 `json:"history_per_minute" yaml:"history_per_minute"`
	SweepPerMinute    float64 `json:"sweep_per_minute" yaml:"sweep_per_minute"`
}

// ValidTraceFormats lists the accepted Trace.Format values.
var ValidTraceFormats = []string{"table", "csv", "parquet", "plot"}

// Default returns a GlitchsimConfig with sensible defaults.
func Default() *GlitchsimConfig {
	return &GlitchsimConfig{
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Record: true,
		},
		Sweep: SweepConfig{
			Workers: constants.DefaultSweepWorkers,
			Seed:    1,
		},
		Trace: TraceConfig{
			Format: "table",
		},
		MCP: MCPConfig{
			EvaluatePerMinute: 120,
			HistoryPerMinute:  60,
			SweepPerMinute:    6,
		},
	}
}

// DefaultPath returns ~/.glitchsim/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".glitchsim", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.glitchsim/config.yaml -> environment variables
func Load() (*GlitchsimConfig, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit config file. An empty path selects the
// default location, which may be absent; an explicit path must exist.
func LoadPath(path string) (*GlitchsimConfig, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		_, statErr := os.Stat(path)
		if statErr == nil || explicit {
			fileConfig, err := LoadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*GlitchsimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)

	return config, nil
}

// Save writes the configuration as YAML to path, creating parent directories.
func Save(config *GlitchsimConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *GlitchsimConfig) Validate() error {
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Sweep.Workers < 1 {
		return fmt.Errorf("sweep.workers must be at least 1, got %d", c.Sweep.Workers)
	}

	if !validTraceFormat(c.Trace.Format) {
		return fmt.Errorf("invalid trace format: %s (valid: %s)", c.Trace.Format, strings.Join(ValidTraceFormats, ", "))
	}

	if c.MCP.EvaluatePerMinute < 0 || c.MCP.HistoryPerMinute < 0 || c.MCP.SweepPerMinute < 0 {
		return fmt.Errorf("mcp rate limits must be non-negative")
	}

	return nil
}

func validTraceFormat(f string) bool {
	for _, v := range ValidTraceFormats {
		if f == v {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GlitchsimConfig) {
	if v := os.Getenv("GLITCHSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("GLITCHSIM_DB_PATH"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("GLITCHSIM_RECORD"); v != "" {
		config.Store.Record = v == "true" || v == "1"
	}

	if v := os.Getenv("GLITCHSIM_SWEEP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.Workers = n
		}
	}

	if v := os.Getenv("GLITCHSIM_TRACE_FORMAT"); v != "" {
		config.Trace.Format = strings.ToLower(v)
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
