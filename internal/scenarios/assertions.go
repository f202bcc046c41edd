package scenarios

import (
	"testing"

	"github.com/nvandessel/glitchsim/internal/models"
)

// AssertPassed fails the test with every mismatch of the result.
func AssertPassed(t testing.TB, result Result) {
	t.Helper()
	for _, m := range result.Mismatches {
		t.Errorf("AssertPassed: scenario %s: %s", result.Scenario.Name, m)
	}
}

// AssertOutcome asserts the verdict of every evaluation.
func AssertOutcome(t testing.TB, result Result, want models.Outcome) {
	t.Helper()
	for i, r := range result.Reports {
		if r.Outcome != want {
			t.Errorf("AssertOutcome: scenario %s evaluation %d: outcome %s, want %s", result.Scenario.Name, i+1, r.Outcome, want)
		}
	}
}

// AssertFault asserts the transform result of every evaluation.
func AssertFault(t testing.TB, result Result, want models.FaultResult) {
	t.Helper()
	for i, r := range result.Reports {
		if r.Fault != want {
			t.Errorf("AssertFault: scenario %s evaluation %d: fault %s, want %s", result.Scenario.Name, i+1, r.Fault, want)
		}
	}
}

// AssertGlitched asserts that at least one tick crossed the glitch threshold.
func AssertGlitched(t testing.TB, result Result) {
	t.Helper()
	for i, s := range result.Summaries {
		if s.Glitches == 0 {
			t.Errorf("AssertGlitched: scenario %s evaluation %d: no glitch observed", result.Scenario.Name, i+1)
		}
	}
}

// AssertNoGlitch asserts that no tick crossed the glitch threshold.
func AssertNoGlitch(t testing.TB, result Result) {
	t.Helper()
	for i, s := range result.Summaries {
		if s.Glitches != 0 {
			t.Errorf("AssertNoGlitch: scenario %s evaluation %d: %d glitches (first at tick %d)",
				result.Scenario.Name, i+1, s.Glitches, s.FirstGlitchSeq)
		}
	}
}

// AssertDeterministic asserts that repeated evaluations produced identical reports.
func AssertDeterministic(t testing.TB, result Result) {
	t.Helper()
	if len(result.Reports) < 2 {
		t.Errorf("AssertDeterministic: scenario %s ran only %d time(s)", result.Scenario.Name, len(result.Reports))
		return
	}
	for i, r := range result.Reports[1:] {
		if r != result.Reports[0] {
			t.Errorf("AssertDeterministic: scenario %s evaluation %d differs from the first", result.Scenario.Name, i+2)
		}
	}
}
