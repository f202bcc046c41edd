package soc

// Phase labels which part of the boot flow produced a tick.
type Phase string

const (
	PhaseLoad      Phase = "load"      // scratchpad word load
	PhaseSetup     Phase = "setup"     // fixed transform overhead
	PhaseTransform Phase = "transform" // butterfly pair
)

// Sample is the state observed immediately after one tick.
type Sample struct {
	Seq         int     `json:"seq"` // 1-based tick number
	Cost        uint32  `json:"cost"`
	Hamming     uint32  `json:"hamming"`
	Current     float32 `json:"current"`
	DiDt        float32 `json:"di_dt"`
	Voltage     float32 `json:"voltage"`
	Temperature float32 `json:"temperature"`
	Cycles      uint64  `json:"cycles"`
	Stall       bool    `json:"stall"`
	Glitch      bool    `json:"glitch"`   // voltage crossed GlitchThreshold on this tick
	Brownout    bool    `json:"brownout"` // voltage crossed BrownoutThreshold on this tick
}

// Recorder receives every sample produced during an evaluation.
type Recorder interface {
	Record(phase Phase, s Sample)
}

// Tick advances the simulation by one unit of work.
//
// All arithmetic is float32. Products are converted explicitly so the
// compiler cannot fuse them into multiply-adds; the glitch thresholds are
// sensitive to the last bit.
func (s *State) Tick(instructionCost, hammingWeight uint32) Sample {
	s.Cycles += uint64(instructionCost)
	s.ticks++

	current := float32(float32(instructionCost)*CostCurrent) + float32(float32(hammingWeight)*HammingCurrent)

	// Heat first, then passive cooling toward ambient.
	s.Temperature += float32(current * HeatCoeff)
	s.Temperature -= float32((s.Temperature - AmbientTemperature) * CoolCoeff)

	diDt := current - s.previousCurrent
	s.Voltage = NominalVoltage - float32(diDt*RegulatorGain)

	var glitch, brownout bool
	switch {
	case s.Voltage > GlitchThreshold:
		s.Stall = true
		s.Regs.GlitchDet = GlitchSentinel
		glitch = true
	case s.Voltage < BrownoutThreshold:
		// Stall keeps its previous value.
		s.Regs.Status = StatusBrownout
		brownout = true
	default:
		s.Stall = false
	}

	s.previousCurrent = current

	return Sample{
		Seq:         s.ticks,
		Cost:        instructionCost,
		Hamming:     hammingWeight,
		Current:     current,
		DiDt:        diDt,
		Voltage:     s.Voltage,
		Temperature: s.Temperature,
		Cycles:      s.Cycles,
		Stall:       s.Stall,
		Glitch:      glitch,
		Brownout:    brownout,
	}
}
