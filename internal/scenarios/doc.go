// Package scenarios holds named, canned boot attempts with their expected
// verdicts, a runner that evaluates them on fresh SoC models, and assertion
// helpers for tests.
//
// Usage:
//
//	func TestSaturatedImage(t *testing.T) {
//	    sc, _ := scenarios.Lookup("saturated")
//	    result := scenarios.NewRunner().Run(sc)
//	    scenarios.AssertPassed(t, result)
//	    scenarios.AssertFault(t, result, models.Completed(64))
//	}
package scenarios
