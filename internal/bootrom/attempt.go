package bootrom

import (
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
)

// Attempt converts the report into a history record. ID and Timestamp are
// left for the store to assign.
func (r Report) Attempt(source constants.Source) models.Attempt {
	a := models.Attempt{
		Source:    source,
		InputHash: r.InputHash,
		InputLen:  r.InputLen,
		Outcome:   r.Outcome,
		Fault:     r.Fault.Status,
		FaultPair: -1,
		Cycles:    r.State.Cycles,
		Voltage:   r.State.Voltage,
		Temp:      r.State.Temperature,
		StatusReg: r.State.Regs.Status,
		GlitchReg: r.State.Regs.GlitchDet,
		Ticks:     r.State.Ticks,
	}
	if r.Fault.Faulted() {
		a.FaultPair = r.Fault.Pair
	}
	return a
}

