package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nvandessel/glitchsim/internal/bootrom"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/hexinput"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/telemetry"
	"github.com/spf13/cobra"
)

func newBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Run the boot console: read one hex image from stdin and verify it",
		Long: `Emulate the secure bootloader console.

Prints the boot banner, reads one line of hex from stdin, decodes it and
runs the security handler. Decoding stops at the first character that is
not part of a hex pair.

Examples:
  glitchsim boot < image.hex
  echo "$IMAGE" | glitchsim boot --json
  glitchsim boot --no-record < image.hex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			noRecord, _ := cmd.Flags().GetBool("no-record")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			if !jsonOut {
				if err := bootrom.WriteBanner(out); err != nil {
					return err
				}
			}

			line, err := hexinput.ReadLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			tickLog := telemetry.NewTickLogger(env.logger)
			report := bootrom.Evaluate(hexinput.Decode(line), bootrom.WithRecorder(telemetry.Tee(tickLog)))

			attempt := report.Attempt(constants.SourceCLI)
			if env.cfg.Store.Record && !noRecord {
				attempt.ID = recordAttempt(cmd.Context(), env, attempt)
			}
			env.attempts.LogAttempt(attempt)

			env.logger.Debug("boot evaluated",
				"outcome", report.Outcome.String(),
				"fault", report.Fault.String(),
				"cycles", report.State.Cycles,
				"input_len", report.InputLen)

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"outcome":    report.Outcome,
					"code":       report.Outcome.Code(),
					"message":    bootrom.Message(report.Outcome),
					"attempt_id": attempt.ID,
					"report":     report,
				})
			}

			if report.Outcome == models.OutcomeMalformedInput {
				fmt.Fprintln(out, bootrom.MsgCorrupted)
				return nil
			}
			fmt.Fprintln(out, bootrom.MsgVerifying)
			fmt.Fprintln(out)
			fmt.Fprintln(out, bootrom.Message(report.Outcome))
			return nil
		},
	}

	cmd.Flags().Bool("no-record", false, "Do not record this attempt in the history database")

	return cmd
}

// recordAttempt stores a and returns its ID. Store failures are logged, not
// fatal: the verdict has already been reached.
func recordAttempt(ctx context.Context, env *cliEnv, a models.Attempt) string {
	st, err := env.openStore()
	if err != nil {
		env.logger.Warn("attempt not recorded", "error", err)
		return ""
	}
	defer st.Close()

	id, err := st.RecordAttempt(ctx, a)
	if err != nil {
		env.logger.Warn("attempt not recorded", "error", err)
		return ""
	}
	return id
}
