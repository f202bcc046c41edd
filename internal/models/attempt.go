package models

import (
	"time"

	"github.com/nvandessel/glitchsim/internal/constants"
)

// Attempt is the persisted record of one boot attempt.
type Attempt struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Source    constants.Source `json:"source"`
	InputHash string           `json:"input_hash"` // hex SHA-256 of the full image
	InputLen  int              `json:"input_len"`
	Outcome   Outcome          `json:"outcome"`
	Fault     FaultStatus      `json:"fault,omitempty"`
	FaultPair int              `json:"fault_pair"`
	Cycles    uint64           `json:"cycles"`
	Voltage   float32          `json:"voltage"`
	Temp      float32          `json:"temperature"`
	StatusReg uint32           `json:"status_reg"`
	GlitchReg uint32           `json:"glitch_reg"`
	Ticks     int              `json:"ticks"`
}

// AttemptStats aggregates recorded attempts.
type AttemptStats struct {
	Total     int            `json:"total"`
	ByOutcome map[string]int `json:"by_outcome"`
	Faulted   int            `json:"faulted"`

	// FaultedAccepts counts accepts whose transform pass was aborted by a stall.
	FaultedAccepts int `json:"faulted_accepts"`
}
