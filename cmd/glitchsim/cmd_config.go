package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/nvandessel/glitchsim/internal/config"
	"github.com/nvandessel/glitchsim/internal/logging"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage glitchsim configuration",
		Long: `View and modify glitchsim configuration settings.

Configuration is stored in ~/.glitchsim/config.yaml unless --config is given.

Examples:
  glitchsim config list                     # Show all settings
  glitchsim config get sweep.workers        # Get a specific setting
  glitchsim config set logging.level debug  # Set a setting`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

// configKeys lists every supported dot-notation key in display order.
var configKeys = []string{
	"logging.level",
	"store.path",
	"store.record",
	"sweep.workers",
	"sweep.seed",
	"trace.format",
	"mcp.evaluate_per_minute",
	"mcp.history_per_minute",
	"mcp.sweep_per_minute",
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.LoadPath(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Configuration (~/.glitchsim/config.yaml + environment):")
			fmt.Fprintln(out)
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-26s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			key := args[0]

			cfg, err := config.LoadPath(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(out, "%s = %v\n", key, value)
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			key, value := args[0], args[1]

			path := configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			// Edit the file alone so environment overrides are not persisted.
			cfg, err := config.LoadFromFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				cfg, err = config.Default(), nil
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := setConfigValue(cfg, key, value); err != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": err.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
				return nil
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(out, "Set %s = %s\n", key, value)
			}
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.GlitchsimConfig, key string) (interface{}, bool) {
	switch key {
	case "logging.level":
		return cfg.Logging.Level, true
	case "store.path":
		return valueOrDefault(cfg.Store.Path, "(default)"), true
	case "store.record":
		return cfg.Store.Record, true
	case "sweep.workers":
		return cfg.Sweep.Workers, true
	case "sweep.seed":
		return cfg.Sweep.Seed, true
	case "trace.format":
		return cfg.Trace.Format, true
	case "mcp.evaluate_per_minute":
		return cfg.MCP.EvaluatePerMinute, true
	case "mcp.history_per_minute":
		return cfg.MCP.HistoryPerMinute, true
	case "mcp.sweep_per_minute":
		return cfg.MCP.SweepPerMinute, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.GlitchsimConfig, key, value string) error {
	switch key {
	case "logging.level":
		if !logging.ValidLevel(value) {
			return fmt.Errorf("invalid level: %s (valid: info, debug, trace)", value)
		}
		cfg.Logging.Level = strings.ToLower(value)
	case "store.path":
		cfg.Store.Path = value
	case "store.record":
		cfg.Store.Record = value == "true" || value == "1"
	case "sweep.workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid worker count: %s (must be a positive integer)", value)
		}
		cfg.Sweep.Workers = n
	case "sweep.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		cfg.Sweep.Seed = n
	case "trace.format":
		cfg.Trace.Format = strings.ToLower(value)
	case "mcp.evaluate_per_minute", "mcp.history_per_minute", "mcp.sweep_per_minute":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid rate: %s (must be a non-negative number, 0 = unlimited)", value)
		}
		switch key {
		case "mcp.evaluate_per_minute":
			cfg.MCP.EvaluatePerMinute = f
		case "mcp.history_per_minute":
			cfg.MCP.HistoryPerMinute = f
		default:
			cfg.MCP.SweepPerMinute = f
		}
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
