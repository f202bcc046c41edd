// Package soc models the power, thermal and supply-voltage behaviour of a
// small System-on-Chip executing a verification workload.
//
// The model is tick based. Every unit of simulated work calls Tick with an
// instruction cost and the hamming weight of the data being processed:
//
//	current     = cost*0.1 + hamming*0.05
//	temperature = heat(current) then cool toward 25.0 C
//	voltage     = 1.20 - (current - previousCurrent)*0.15
//
// A sudden drop in current overshoots the regulator. When the voltage rises
// above 1.45 V the pipeline stalls and the glitch detector latches its
// sentinel; below 0.90 V the status register reports a brownout and the stall
// line keeps whatever value it had. Because voltage depends only on the data
// stream and the previous tick, an attacker who controls input bytes controls
// when the glitch window opens.
//
// A State is a plain value owned by exactly one evaluation. It carries the
// previous tick's current itself, so two evaluations never observe each
// other's history and identical inputs always produce identical traces.
//
// Usage:
//
//	st := soc.New()
//	for _, w := range words {
//	    st.Tick(1, bits.OnesCount32(w))
//	}
//	if st.Stall {
//	    // the next instruction's effect is skipped
//	}
package soc
