// Package telemetry records per-tick samples of an evaluation and exports
// them for analysis as tables, CSV, parquet or an ASCII voltage plot.
package telemetry

import (
	"math"

	"github.com/nvandessel/glitchsim/internal/soc"
)

// Entry is one recorded tick.
type Entry struct {
	Phase soc.Phase `json:"phase"`
	soc.Sample
}

// Trace collects samples in tick order. It implements soc.Recorder.
// A Trace is not safe for concurrent use; give each evaluation its own.
type Trace struct {
	Entries []Entry
}

// NewTrace returns an empty trace sized for one full evaluation.
func NewTrace() *Trace {
	return &Trace{Entries: make([]Entry, 0, 321)}
}

// Record appends a sample.
func (t *Trace) Record(phase soc.Phase, s soc.Sample) {
	t.Entries = append(t.Entries, Entry{Phase: phase, Sample: s})
}

// Len returns the number of recorded ticks.
func (t *Trace) Len() int {
	return len(t.Entries)
}

// Voltages returns the voltage after every tick, as float64 for plotting.
func (t *Trace) Voltages() []float64 {
	out := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = float64(e.Voltage)
	}
	return out
}

// Summary aggregates a trace.
type Summary struct {
	Ticks          int            `json:"ticks"`
	ByPhase        map[string]int `json:"by_phase"`
	Glitches       int            `json:"glitches"`
	Brownouts      int            `json:"brownouts"`
	FirstGlitchSeq int            `json:"first_glitch_seq"` // 0 when no tick glitched
	MinVoltage     float64        `json:"min_voltage"`
	MaxVoltage     float64        `json:"max_voltage"`
	PeakTemp       float64        `json:"peak_temperature"`
	FinalCycles    uint64         `json:"final_cycles"`
}

// Summarize computes a Summary of the trace.
func (t *Trace) Summarize() Summary {
	sum := Summary{
		ByPhase:    make(map[string]int),
		MinVoltage: math.Inf(1),
		MaxVoltage: math.Inf(-1),
	}
	for _, e := range t.Entries {
		sum.Ticks++
		sum.ByPhase[string(e.Phase)]++
		if e.Glitch {
			sum.Glitches++
			if sum.FirstGlitchSeq == 0 {
				sum.FirstGlitchSeq = e.Seq
			}
		}
		if e.Brownout {
			sum.Brownouts++
		}
		sum.MinVoltage = math.Min(sum.MinVoltage, float64(e.Voltage))
		sum.MaxVoltage = math.Max(sum.MaxVoltage, float64(e.Voltage))
		sum.PeakTemp = math.Max(sum.PeakTemp, float64(e.Temperature))
		sum.FinalCycles = e.Cycles
	}
	if sum.Ticks == 0 {
		sum.MinVoltage, sum.MaxVoltage = 0, 0
	}
	return sum
}
