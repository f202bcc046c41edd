package main

import (
	"fmt"

	"github.com/nvandessel/glitchsim/internal/mcp"
	"github.com/nvandessel/glitchsim/internal/ratelimit"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Serve glitchsim tools to MCP clients over stdin/stdout.

Tools: glitch_evaluate, glitch_history, glitch_sweep.
Resources: glitchsim://attempts/recent, glitchsim://attempts/{id}.

Tool calls are audited to ~/.glitchsim/audit.jsonl. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			st, err := env.openStore()
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "glitchsim",
				Version: version,
				Store:   st,
				Record:  env.cfg.Store.Record,
				Workers: env.cfg.Sweep.Workers,
				Limits: ratelimit.ToolLimits{
					EvaluatePerMinute: env.cfg.MCP.EvaluatePerMinute,
					HistoryPerMinute:  env.cfg.MCP.HistoryPerMinute,
					SweepPerMinute:    env.cfg.MCP.SweepPerMinute,
				},
				AuditDir: env.dataDir,
				Logger:   env.logger,
				Attempts: env.attempts,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			env.logger.Info("mcp server starting", "version", version, "store", st.Path())
			return server.Run(cmd.Context())
		},
	}
}
