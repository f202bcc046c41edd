package mcp

import (
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/sweep"
	"github.com/nvandessel/glitchsim/internal/telemetry"
)

// GlitchEvaluateInput defines the input for the glitch_evaluate tool.
type GlitchEvaluateInput struct {
	ImageHex string `json:"image_hex" jsonschema:"description=Firmware image as a hex string (at least 3325 bytes once decoded),required"`
	Trace    bool   `json:"trace,omitempty" jsonschema:"description=Include a per-tick telemetry summary of the evaluation"`
}

// GlitchEvaluateOutput defines the output for the glitch_evaluate tool.
type GlitchEvaluateOutput struct {
	AttemptID   string             `json:"attempt_id,omitempty" jsonschema:"description=History ID of the recorded attempt"`
	Outcome     string             `json:"outcome" jsonschema:"description=Verdict: accept, reject or malformed"`
	Code        uint8              `json:"code" jsonschema:"description=Raw bootloader return code (0x01, 0xFF or 0xEE)"`
	Fault       string             `json:"fault,omitempty" jsonschema:"description=Transform status: completed or faulted-early"`
	FaultPair   int                `json:"fault_pair" jsonschema:"description=Word index of the stalled pair, or -1"`
	Iterations  int                `json:"iterations" jsonschema:"description=Butterfly pairs processed before completion or fault"`
	Cycles      uint64             `json:"cycles" jsonschema:"description=Simulated cycle counter at the end of the evaluation"`
	Ticks       int                `json:"ticks" jsonschema:"description=Number of physics ticks simulated"`
	Voltage     float32            `json:"voltage" jsonschema:"description=Final core voltage"`
	Temperature float32            `json:"temperature" jsonschema:"description=Final die temperature in C"`
	StatusReg   uint32             `json:"status_reg" jsonschema:"description=Final status register"`
	GlitchReg   uint32             `json:"glitch_reg" jsonschema:"description=Final glitch detector register"`
	InputLen    int                `json:"input_len" jsonschema:"description=Decoded image length in bytes"`
	InputHash   string             `json:"input_hash" jsonschema:"description=Hex SHA-256 of the decoded image"`
	Trace       *telemetry.Summary `json:"trace,omitempty" jsonschema:"description=Telemetry summary (when trace was requested)"`
	Message     string             `json:"message" jsonschema:"description=Boot console message for this verdict"`
}

// GlitchHistoryInput defines the input for the glitch_history tool.
type GlitchHistoryInput struct {
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum attempts to return (default: 20)"`
	Outcome string `json:"outcome,omitempty" jsonschema:"description=Filter by outcome: accept, reject or malformed"`
	Source  string `json:"source,omitempty" jsonschema:"description=Filter by source: cli, mcp or sweep"`
}

// AttemptSummary is a compact history row.
type AttemptSummary struct {
	ID        string  `json:"id" jsonschema:"description=Attempt ID"`
	Timestamp string  `json:"timestamp" jsonschema:"description=RFC3339 time the attempt was recorded"`
	Source    string  `json:"source" jsonschema:"description=Surface that submitted the attempt"`
	Outcome   string  `json:"outcome" jsonschema:"description=Verdict"`
	Fault     string  `json:"fault,omitempty" jsonschema:"description=Transform status"`
	FaultPair int     `json:"fault_pair" jsonschema:"description=Word index of the stalled pair, or -1"`
	Cycles    uint64  `json:"cycles" jsonschema:"description=Final cycle counter"`
	Voltage   float32 `json:"voltage" jsonschema:"description=Final core voltage"`
	InputLen  int     `json:"input_len" jsonschema:"description=Image length in bytes"`
}

// GlitchHistoryOutput defines the output for the glitch_history tool.
type GlitchHistoryOutput struct {
	Attempts []AttemptSummary    `json:"attempts" jsonschema:"description=Most recent attempts, newest first"`
	Count    int                 `json:"count" jsonschema:"description=Number of attempts returned"`
	Stats    models.AttemptStats `json:"stats" jsonschema:"description=Aggregate counts over the whole history"`
}

// GlitchSweepInput defines the input for the glitch_sweep tool.
type GlitchSweepInput struct {
	Random int    `json:"random,omitempty" jsonschema:"description=Number of additional random images to evaluate (max 256)"`
	Seed   uint64 `json:"seed,omitempty" jsonschema:"description=Seed for random images (default: 1)"`
}

// SweepRow is one evaluated sweep candidate.
type SweepRow struct {
	Name        string `json:"name" jsonschema:"description=Candidate name"`
	PairHamming int    `json:"pair_hamming" jsonschema:"description=Hamming weight of the first word pair, or -1 for random images"`
	Outcome     string `json:"outcome" jsonschema:"description=Verdict"`
	Fault       string `json:"fault" jsonschema:"description=Transform result"`
	Cycles      uint64 `json:"cycles" jsonschema:"description=Final cycle counter"`
}

// GlitchSweepOutput defines the output for the glitch_sweep tool.
type GlitchSweepOutput struct {
	Summary     sweep.Summary `json:"summary" jsonschema:"description=Aggregate sweep counts"`
	WindowFound bool          `json:"window_found" jsonschema:"description=Whether any hamming weight stalled the first pair"`
	WindowLow   int           `json:"window_low" jsonschema:"description=Lowest stalling hamming weight"`
	WindowHigh  int           `json:"window_high" jsonschema:"description=Highest stalling hamming weight"`
	Results     []SweepRow    `json:"results" jsonschema:"description=Per-candidate results in candidate order"`
	Message     string        `json:"message" jsonschema:"description=Human-readable summary"`
}
