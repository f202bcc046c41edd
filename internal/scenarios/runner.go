package scenarios

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/glitchsim/internal/bootrom"
	"github.com/nvandessel/glitchsim/internal/logging"
	"github.com/nvandessel/glitchsim/internal/telemetry"
)

// Result captures every evaluation of one scenario.
type Result struct {
	Scenario   Scenario
	Reports    []bootrom.Report
	Summaries  []telemetry.Summary
	Mismatches []string
}

// Passed reports whether every expectation held.
func (r Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// First returns the first evaluation's report.
func (r Result) First() bootrom.Report {
	return r.Reports[0]
}

// Runner evaluates scenarios.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner that logs nothing.
func NewRunner() *Runner {
	return &Runner{logger: logging.Discard()}
}

// SetLogger sets the structured logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run evaluates sc and checks its expectation.
func (r *Runner) Run(sc Scenario) Result {
	res := Result{Scenario: sc}

	for i := 0; i < sc.runs(); i++ {
		tr := telemetry.NewTrace()
		report := bootrom.Evaluate(sc.Image, bootrom.WithRecorder(tr))
		res.Reports = append(res.Reports, report)
		res.Summaries = append(res.Summaries, tr.Summarize())
	}

	res.Mismatches = check(sc.Expect, res.Reports)

	r.logger.Debug("scenario evaluated",
		"name", sc.Name,
		"outcome", res.First().Outcome.String(),
		"fault", res.First().Fault.String(),
		"passed", res.Passed())

	return res
}

// RunAll runs every scenario in order.
func (r *Runner) RunAll(all []Scenario) []Result {
	out := make([]Result, 0, len(all))
	for _, sc := range all {
		out = append(out, r.Run(sc))
	}
	return out
}

func check(want Expectation, reports []bootrom.Report) []string {
	var bad []string
	first := reports[0]

	if first.Outcome != want.Outcome {
		bad = append(bad, fmt.Sprintf("outcome %s, want %s", first.Outcome, want.Outcome))
	}
	if want.Fault.Status != "" && first.Fault != want.Fault {
		bad = append(bad, fmt.Sprintf("fault %s, want %s", first.Fault, want.Fault))
	}
	if want.Ticks != 0 && first.State.Ticks != want.Ticks {
		bad = append(bad, fmt.Sprintf("ticks %d, want %d", first.State.Ticks, want.Ticks))
	}
	if want.Cycles != 0 && first.State.Cycles != want.Cycles {
		bad = append(bad, fmt.Sprintf("cycles %d, want %d", first.State.Cycles, want.Cycles))
	}
	if want.Block0 != nil && first.Block[0] != *want.Block0 {
		bad = append(bad, fmt.Sprintf("block[0] %d, want %d", first.Block[0], *want.Block0))
	}

	for i, r := range reports[1:] {
		if r != first {
			bad = append(bad, fmt.Sprintf("evaluation %d differs from the first", i+2))
		}
	}
	return bad
}
