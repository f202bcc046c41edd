package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded boot attempts",
		Long: `List boot attempts recorded in ~/.glitchsim/attempts.db, newest first.

Examples:
  glitchsim history
  glitchsim history --limit 50 --outcome accept
  glitchsim history show <id>
  glitchsim history stats
  glitchsim history export --out attempts.jsonl
  glitchsim history import attempts.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			outcomeName, _ := cmd.Flags().GetString("outcome")
			sourceName, _ := cmd.Flags().GetString("source")

			opts := store.ListOptions{Limit: limit}
			if outcomeName != "" {
				outcome, err := models.ParseOutcome(outcomeName)
				if err != nil {
					return err
				}
				opts.Outcome = outcome
			}
			if sourceName != "" {
				src := constants.Source(sourceName)
				if !src.Valid() {
					return fmt.Errorf("invalid source %q (valid: cli, mcp, sweep)", sourceName)
				}
				opts.Source = src
			}

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			st, err := env.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			attempts, err := st.ListAttempts(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to list attempts: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"attempts": attempts,
					"count":    len(attempts),
				})
			}

			if len(attempts) == 0 {
				fmt.Fprintln(out, "No attempts recorded.")
				return nil
			}
			printAttempts(out, attempts)
			return nil
		},
	}

	cmd.Flags().Int("limit", store.DefaultListLimit, "Maximum attempts to list")
	cmd.Flags().String("outcome", "", "Filter by outcome: accept, reject, malformed")
	cmd.Flags().String("source", "", "Filter by source: cli, mcp, sweep")

	cmd.AddCommand(
		newHistoryShowCmd(),
		newHistoryStatsCmd(),
		newHistoryExportCmd(),
		newHistoryImportCmd(),
	)

	return cmd
}

func printAttempts(w io.Writer, attempts []models.Attempt) {
	fmt.Fprintf(w, "%-36s  %-20s  %-6s  %-9s  %-18s %7s\n", "ID", "TIME", "SOURCE", "OUTCOME", "FAULT", "CYCLES")
	for _, a := range attempts {
		fault := string(a.Fault)
		if a.FaultPair >= 0 {
			fault = fmt.Sprintf("%s@%d", fault, a.FaultPair)
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-6s  %-9s  %-18s %7d\n",
			a.ID, a.Timestamp.Local().Format(time.DateTime), a.Source, a.Outcome, fault, a.Cycles)
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			st, err := env.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			a, err := st.GetAttempt(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get attempt %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(a)
			}

			fmt.Fprintf(out, "Attempt:     %s\n", a.ID)
			fmt.Fprintf(out, "Recorded:    %s\n", a.Timestamp.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Source:      %s\n", a.Source)
			fmt.Fprintf(out, "Outcome:     %s (0x%02X)\n", a.Outcome, a.Outcome.Code())
			if a.Fault != "" {
				fmt.Fprintf(out, "Fault:       %s", a.Fault)
				if a.FaultPair >= 0 {
					fmt.Fprintf(out, " at pair %d", a.FaultPair)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Cycles:      %d\n", a.Cycles)
			fmt.Fprintf(out, "Ticks:       %d\n", a.Ticks)
			fmt.Fprintf(out, "Voltage:     %.3f V\n", a.Voltage)
			fmt.Fprintf(out, "Temperature: %.2f C\n", a.Temp)
			fmt.Fprintf(out, "Registers:   status=0x%08X glitch=0x%08X\n", a.StatusReg, a.GlitchReg)
			fmt.Fprintf(out, "Input:       %d bytes, sha256 %s\n", a.InputLen, a.InputHash)
			return nil
		},
	}
}

func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate attempt statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			st, err := env.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to compute stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(stats)
			}

			fmt.Fprintf(out, "Attempts: %d\n", stats.Total)
			outcomes := make([]string, 0, len(stats.ByOutcome))
			for o := range stats.ByOutcome {
				outcomes = append(outcomes, o)
			}
			sort.Strings(outcomes)
			for _, o := range outcomes {
				fmt.Fprintf(out, "  %-10s %d\n", o, stats.ByOutcome[o])
			}
			fmt.Fprintf(out, "Faulted:  %d (%d accepted)\n", stats.Faulted, stats.FaultedAccepts)
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export attempts as JSONL",
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, _ := cmd.Flags().GetString("out")
			limit, _ := cmd.Flags().GetInt("limit")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			st, err := env.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := store.ExportJSONL(cmd.Context(), st, w, limit)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d attempts to %s\n", n, outPath)
			}
			return nil
		},
	}

	cmd.Flags().String("out", "", "Write to this file instead of stdout")
	cmd.Flags().Int("limit", 0, "Maximum attempts to export (0 = all)")

	return cmd
}

func newHistoryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Import attempts from a JSONL export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			st, err := env.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := store.ImportJSONL(cmd.Context(), st, f, env.logger)
			if err != nil {
				return fmt.Errorf("import failed after %d attempts: %w", n, err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"imported": n,
					"file":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d attempts from %s\n", n, args[0])
			return nil
		},
	}
}
