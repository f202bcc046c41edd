package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/glitchsim/internal/config"
	"github.com/nvandessel/glitchsim/internal/logging"
	"github.com/nvandessel/glitchsim/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "glitchsim",
		Short: "Secure boot voltage-glitch simulator",
		Long: `glitchsim simulates a hardened secure bootloader whose signature check
runs on a power-sensitive core.

It evaluates firmware images against the boot ROM, exports per-tick
telemetry, sweeps the glitch window, and records every attempt.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.glitchsim/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newBootCmd(),
		newTraceCmd(),
		newSweepCmd(),
		newScenariosCmd(),
		newHistoryCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// cliEnv bundles what most commands need: validated config and loggers.
type cliEnv struct {
	cfg      *config.GlitchsimConfig
	logger   *slog.Logger
	attempts *logging.AttemptLogger
	dataDir  string
}

// loadEnv loads the config named by --config (or the default location),
// validates it and builds the loggers.
func loadEnv(cmd *cobra.Command) (*cliEnv, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	env := &cliEnv{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
	}

	if dir, err := store.GlobalPath(); err == nil {
		env.dataDir = dir
		env.attempts = logging.NewAttemptLogger(dir, cfg.Logging.Level)
	}

	return env, nil
}

// openStore opens the configured attempt database.
func (e *cliEnv) openStore() (*store.SQLiteAttemptStore, error) {
	path := e.cfg.Store.Path
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	st, err := store.NewSQLiteAttemptStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt store: %w", err)
	}
	e.logger.Debug("attempt store opened", "path", path)
	return st, nil
}

func (e *cliEnv) Close() {
	e.attempts.Close()
}

// signalContext returns a context that is cancelled on interrupt, so long
// sweeps stop between candidates.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
