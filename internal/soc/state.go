package soc

import (
	"time"

	"github.com/nvandessel/glitchsim/internal/constants"
)

// Register sentinels
const (
	// StatusIdle is the status register value after reset.
	StatusIdle uint32 = 1

	// StatusBrownout is latched into the status register when the core
	// voltage drops below BrownoutThreshold.
	StatusBrownout uint32 = 0xDEAD

	// GlitchSentinel is latched into the glitch detector when the core
	// voltage rises above GlitchThreshold.
	GlitchSentinel uint32 = 0xCA171CA4
)

// Electrical and thermal model constants
const (
	NominalVoltage     float32 = 1.20
	AmbientTemperature float32 = 25.0

	HeatCoeff float32 = 0.005
	CoolCoeff float32 = 0.002

	// CostCurrent and HammingCurrent convert workload into instantaneous current.
	CostCurrent    float32 = 0.1
	HammingCurrent float32 = 0.05

	// RegulatorGain scales di/dt into the regulator's voltage response.
	RegulatorGain float32 = 0.15

	GlitchThreshold   float32 = 1.45
	BrownoutThreshold float32 = 0.90

	// StableLow and StableHigh bound the nominal operating window (exclusive).
	StableLow  float32 = 1.0
	StableHigh float32 = 1.4
)

// Registers is the simulated hardware register block. Fields are plain
// values; there are no memory-mapped side effects.
type Registers struct {
	Status    uint32 `json:"status"`     // 0x00
	Ctrl      uint32 `json:"ctrl"`       // 0x04
	PowerDraw uint32 `json:"power_draw"` // 0x08
	TempSense uint32 `json:"temp_sense"` // 0x0C
	GlitchDet uint32 `json:"glitch_det"` // 0x10
}

// State is the complete simulation state of one evaluation.
//
// Voltage and Temperature are only ever changed by Tick. Stall reflects the
// most recent tick and is not cumulative.
type State struct {
	Cycles      uint64
	Voltage     float32
	Temperature float32
	Stall       bool
	Regs        Registers

	previousCurrent float32
	ticks           int
}

// New returns a State at its reset values.
func New() *State {
	return &State{
		Cycles:      0,
		Voltage:     NominalVoltage,
		Temperature: AmbientTemperature,
		Stall:       false,
		Regs: Registers{
			Status:    StatusIdle,
			PowerDraw: 0,
		},
		previousCurrent: 0,
	}
}

// PreviousCurrent returns the current drawn on the most recent tick.
func (s *State) PreviousCurrent() float32 {
	return s.previousCurrent
}

// Ticks returns the number of ticks applied since reset.
func (s *State) Ticks() int {
	return s.ticks
}

// IsStable reports whether the core voltage is inside the nominal window.
// It is a diagnostic; the security handler never consults it.
func (s *State) IsStable() bool {
	return s.Voltage > StableLow && s.Voltage < StableHigh
}

// OverTemp reports whether the die is above the HAL thermal limit.
func (s *State) OverTemp() bool {
	return s.Temperature*100 > constants.ThermalLimitCentiC
}

// Elapsed converts the cycle count to wall time at the simulated core clock.
func (s *State) Elapsed() time.Duration {
	return time.Duration(s.Cycles) * (time.Second / constants.ClockFreqHz)
}

// Snapshot is a copy of the externally visible state.
type Snapshot struct {
	Cycles      uint64    `json:"cycles"`
	Voltage     float32   `json:"voltage"`
	Temperature float32   `json:"temperature"`
	Stall       bool      `json:"stall"`
	Regs        Registers `json:"registers"`
	Ticks       int       `json:"ticks"`
}

// Snapshot returns a copy of the externally visible state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Cycles:      s.Cycles,
		Voltage:     s.Voltage,
		Temperature: s.Temperature,
		Stall:       s.Stall,
		Regs:        s.Regs,
		Ticks:       s.ticks,
	}
}
