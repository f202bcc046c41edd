package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/glitchsim/internal/scenarios"
	"github.com/spf13/cobra"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios [name...]",
		Short: "Run the built-in boot scenarios",
		Long: `Run the canned scenarios and check each against its expected outcome.

With no arguments every scenario runs. Exits non-zero if any fails.

Examples:
  glitchsim scenarios
  glitchsim scenarios all-zero saturated
  glitchsim scenarios --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			list, _ := cmd.Flags().GetBool("list")
			out := cmd.OutOrStdout()

			if list {
				for _, sc := range scenarios.Catalog() {
					fmt.Fprintf(out, "%-14s %s\n", sc.Name, sc.Description)
				}
				return nil
			}

			selected := scenarios.Catalog()
			if len(args) > 0 {
				selected = nil
				for _, name := range args {
					sc, err := scenarios.Lookup(name)
					if err != nil {
						return err
					}
					selected = append(selected, sc)
				}
			}

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			runner := scenarios.NewRunner()
			runner.SetLogger(env.logger)
			results := runner.RunAll(selected)

			failed := 0
			type row struct {
				Name       string   `json:"name"`
				Passed     bool     `json:"passed"`
				Outcome    string   `json:"outcome"`
				Fault      string   `json:"fault"`
				Ticks      int      `json:"ticks"`
				Cycles     uint64   `json:"cycles"`
				Glitches   int      `json:"glitches"`
				Mismatches []string `json:"mismatches,omitempty"`
			}
			rows := make([]row, 0, len(results))
			for _, r := range results {
				if !r.Passed() {
					failed++
				}
				first := r.First()
				rows = append(rows, row{
					Name:       r.Scenario.Name,
					Passed:     r.Passed(),
					Outcome:    first.Outcome.String(),
					Fault:      first.Fault.String(),
					Ticks:      first.State.Ticks,
					Cycles:     first.State.Cycles,
					Glitches:   r.Summaries[0].Glitches,
					Mismatches: r.Mismatches,
				})
			}

			if jsonOut {
				if err := json.NewEncoder(out).Encode(map[string]interface{}{
					"scenarios": rows,
					"failed":    failed,
				}); err != nil {
					return err
				}
			} else {
				for _, r := range rows {
					status := "PASS"
					if !r.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(out, "%s  %-14s %-9s %s\n", status, r.Name, r.Outcome, r.Fault)
					for _, m := range r.Mismatches {
						fmt.Fprintf(out, "      - %s\n", m)
					}
				}
				fmt.Fprintf(out, "\n%d/%d scenarios passed\n", len(rows)-failed, len(rows))
			}

			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().Bool("list", false, "List scenarios without running them")

	return cmd
}
