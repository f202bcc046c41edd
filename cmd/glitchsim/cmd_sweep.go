package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/sweep"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Map the glitch window over first-pair hamming weight",
		Long: `Evaluate one image per combined hamming weight (0..64) of the first two
signature words, and optionally a batch of random images, concurrently.

The glitch window is the set of hamming weights whose first butterfly
pair stalled.

Examples:
  glitchsim sweep
  glitchsim sweep --random 100 --seed 42 --workers 8
  glitchsim sweep --record --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			random, _ := cmd.Flags().GetInt("random")
			record, _ := cmd.Flags().GetBool("record")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			workers := env.cfg.Sweep.Workers
			if cmd.Flags().Changed("workers") {
				workers, _ = cmd.Flags().GetInt("workers")
			}
			seed := env.cfg.Sweep.Seed
			if cmd.Flags().Changed("seed") {
				seed, _ = cmd.Flags().GetUint64("seed")
			}
			if random < 0 {
				return fmt.Errorf("--random must be non-negative, got %d", random)
			}

			candidates := sweep.HammingCandidates()
			if random > 0 {
				candidates = append(candidates, sweep.RandomCandidates(random, seed)...)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			sw := sweep.New(workers)
			sw.SetLogger(env.logger, env.attempts)
			env.logger.Info("sweep starting", "candidates", len(candidates), "workers", sw.Workers())

			results, err := sw.Run(ctx, candidates)
			if err != nil {
				return fmt.Errorf("sweep aborted: %w", err)
			}

			recorded := 0
			if record {
				recorded, err = recordSweep(ctx, env, results)
				if err != nil {
					return err
				}
			}

			summary := sweep.Summarize(results)
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"summary":  summary,
					"results":  results,
					"recorded": recorded,
				})
			}

			printSweep(out, results, summary)
			if record {
				fmt.Fprintf(out, "\nRecorded %d attempts.\n", recorded)
			}
			return nil
		},
	}

	cmd.Flags().Int("random", 0, "Number of additional random images")
	cmd.Flags().Uint64("seed", 1, "Seed for random images (default from config)")
	cmd.Flags().Int("workers", constants.DefaultSweepWorkers, "Concurrent evaluations (default from config)")
	cmd.Flags().Bool("record", false, "Record every sweep evaluation in the history database")

	return cmd
}

func recordSweep(ctx context.Context, env *cliEnv, results []sweep.Result) (int, error) {
	st, err := env.openStore()
	if err != nil {
		return 0, err
	}
	defer st.Close()

	for i, r := range results {
		if _, err := st.RecordAttempt(ctx, r.Report().Attempt(constants.SourceSweep)); err != nil {
			return i, fmt.Errorf("failed to record %s: %w", r.Name, err)
		}
	}
	return len(results), nil
}

func printSweep(w io.Writer, results []sweep.Result, s sweep.Summary) {
	fmt.Fprintf(w, "%-14s %4s  %-7s  %-34s %7s\n", "CANDIDATE", "HW", "OUTCOME", "FAULT", "CYCLES")
	for _, r := range results {
		hw := "-"
		if r.PairHamming >= 0 {
			hw = fmt.Sprintf("%d", r.PairHamming)
		}
		fmt.Fprintf(w, "%-14s %4s  %-7s  %-34s %7d\n", r.Name, hw, r.Outcome, r.Fault, r.Cycles)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d  accept: %d  reject: %d  malformed: %d  faulted: %d (%d accepted)\n",
		s.Total, s.Accepts, s.Rejects, s.Malformed, s.Faulted, s.FaultedAccepts)
	if lo, hi, ok := s.WindowBounds(); ok {
		fmt.Fprintf(w, "Glitch window: pair hamming weight %d..%d (%d weights)\n", lo, hi, len(s.Window))
	} else {
		fmt.Fprintln(w, "Glitch window: none")
	}
}
