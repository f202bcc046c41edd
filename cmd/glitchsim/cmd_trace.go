package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/nvandessel/glitchsim/internal/bootrom"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/hexinput"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/telemetry"
	"github.com/spf13/cobra"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Evaluate an image and export its per-tick telemetry",
		Long: `Evaluate a hex firmware image and export one row per simulated tick.

Formats:
  table    aligned text table (default)
  csv      comma-separated values
  parquet  columnar file, requires --out
  plot     ASCII chart of the core voltage

Examples:
  glitchsim trace < image.hex
  glitchsim trace --input image.hex --format plot
  glitchsim trace --input image.hex --format parquet --out trace.parquet
  glitchsim trace inspect trace.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			inputPath, _ := cmd.Flags().GetString("input")
			outPath, _ := cmd.Flags().GetString("out")
			formatName, _ := cmd.Flags().GetString("format")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if formatName == "" {
				formatName = env.cfg.Trace.Format
			}
			format, err := telemetry.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if format == telemetry.FormatParquet && outPath == "" {
				return fmt.Errorf("--format parquet requires --out")
			}

			var in io.Reader = cmd.InOrStdin()
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			image, err := hexinput.Read(in)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			tr := telemetry.NewTrace()
			report := bootrom.Evaluate(image, bootrom.WithRecorder(telemetry.Tee(tr, telemetry.NewTickLogger(env.logger))))
			if report.Outcome == models.OutcomeMalformedInput {
				return fmt.Errorf("image is %d bytes, need at least %d: %w", report.InputLen, constants.MinImageSize, telemetry.ErrEmptyTrace)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case format == telemetry.FormatParquet:
				if err := tr.ExportParquet(ctx, outPath); err != nil {
					return err
				}
			case outPath != "":
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				if err := tr.Write(ctx, f, format); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to close output: %w", err)
				}
			case !jsonOut:
				return tr.Write(ctx, out, format)
			}

			summary := tr.Summarize()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"outcome": report.Outcome,
					"fault":   report.Fault,
					"summary": summary,
					"out":     outPath,
					"format":  format,
				})
			}

			fmt.Fprintf(out, "Wrote %d ticks (%s) to %s\n", summary.Ticks, format, outPath)
			fmt.Fprintf(out, "Outcome: %s, %s\n", report.Outcome, report.Fault)
			return nil
		},
	}

	cmd.Flags().String("input", "", "Read the hex image from this file instead of stdin")
	cmd.Flags().String("out", "", "Write the export to this file")
	cmd.Flags().String("format", "", "Export format: table, csv, parquet, plot (default from config)")

	cmd.AddCommand(newTraceInspectCmd())

	return cmd
}

func newTraceInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Summarize a parquet trace written by 'trace --format parquet'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			showRows, _ := cmd.Flags().GetBool("rows")

			df, err := telemetry.LoadParquet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			summary, err := telemetry.SummarizeFrame(df)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(summary)
			}

			printTraceSummary(out, args[0], summary)
			if showRows {
				fmt.Fprintln(out)
				fmt.Fprint(out, df.Table())
			}
			return nil
		},
	}

	cmd.Flags().Bool("rows", false, "Also print every row")

	return cmd
}

func printTraceSummary(w io.Writer, name string, s telemetry.Summary) {
	fmt.Fprintf(w, "Trace: %s\n", name)
	fmt.Fprintf(w, "  Ticks:        %d\n", s.Ticks)

	phases := make([]string, 0, len(s.ByPhase))
	for p := range s.ByPhase {
		phases = append(phases, p)
	}
	sort.Strings(phases)
	for _, p := range phases {
		fmt.Fprintf(w, "    %-10s  %d\n", p, s.ByPhase[p])
	}

	fmt.Fprintf(w, "  Glitches:     %d", s.Glitches)
	if s.FirstGlitchSeq > 0 {
		fmt.Fprintf(w, " (first at tick %d)", s.FirstGlitchSeq)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Brownouts:    %d\n", s.Brownouts)
	fmt.Fprintf(w, "  Voltage:      %.3f .. %.3f V\n", s.MinVoltage, s.MaxVoltage)
	fmt.Fprintf(w, "  Peak temp:    %.2f C\n", s.PeakTemp)
	fmt.Fprintf(w, "  Final cycles: %d\n", s.FinalCycles)
}
