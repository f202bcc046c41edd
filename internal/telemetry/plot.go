package telemetry

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/nvandessel/glitchsim/internal/soc"
)

// PlotVoltage renders the core voltage over the trace as an ASCII chart.
// height <= 0 selects a default of 12 rows.
func PlotVoltage(t *Trace, height int) string {
	if height <= 0 {
		height = 12
	}
	sum := t.Summarize()
	caption := fmt.Sprintf("core voltage per tick (glitch > %.2f V, brownout < %.2f V, %d glitches)",
		soc.GlitchThreshold, soc.BrownoutThreshold, sum.Glitches)
	return asciigraph.Plot(t.Voltages(), asciigraph.Height(height), asciigraph.Caption(caption))
}

func phaseOf(s string) soc.Phase {
	switch soc.Phase(s) {
	case soc.PhaseLoad, soc.PhaseSetup, soc.PhaseTransform:
		return soc.Phase(s)
	}
	return soc.Phase("unknown")
}
