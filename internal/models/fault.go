package models

import "fmt"

// FaultStatus tells whether the transform ran to completion or was cut short
// by a pipeline stall.
type FaultStatus string

const (
	FaultCompleted    FaultStatus = "completed"     // every pair was processed
	FaultFaultedEarly FaultStatus = "faulted-early" // a stall zeroed a pair and aborted the pass
)

// FaultResult describes how a transform pass ended.
type FaultResult struct {
	Status FaultStatus `json:"status"`

	// Pair is the index of the first word of the zeroed pair.
	// Only meaningful when Status is FaultFaultedEarly; -1 otherwise.
	Pair int `json:"pair"`

	// Iterations is the number of butterfly pairs that were ticked,
	// including the faulted one.
	Iterations int `json:"iterations"`
}

// Completed returns the result of a pass that processed every pair.
func Completed(iterations int) FaultResult {
	return FaultResult{Status: FaultCompleted, Pair: -1, Iterations: iterations}
}

// FaultedEarly returns the result of a pass aborted at the given pair index.
func FaultedEarly(pair, iterations int) FaultResult {
	return FaultResult{Status: FaultFaultedEarly, Pair: pair, Iterations: iterations}
}

// Faulted reports whether the pass was aborted by a stall.
func (r FaultResult) Faulted() bool {
	return r.Status == FaultFaultedEarly
}

// String returns a short human-readable description.
func (r FaultResult) String() string {
	if r.Faulted() {
		return fmt.Sprintf("faulted at pair %d after %d iterations", r.Pair, r.Iterations)
	}
	if r.Status == "" {
		return "not run"
	}
	return fmt.Sprintf("completed %d iterations", r.Iterations)
}
