// Package ntt implements the butterfly pass the verifier runs over the
// scratchpad. Each pair it touches is simulated work on the SoC; a pipeline
// stall observed after a pair's tick zeroes that pair and aborts the pass.
package ntt

import (
	"math/bits"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/soc"
)

// Popcount returns the number of set bits in x.
func Popcount(x uint32) uint32 {
	return uint32(bits.OnesCount32(x))
}

// TransformBlock runs one butterfly pass over block, mutating it in place.
//
// Only the even word of every pair is transformed; block[i+1] is read for
// its power signature but left as it was. Words i+2 and i+3 of each group of
// four are never touched. If a tick leaves st.Stall set, the current pair is
// zeroed and the pass returns immediately, leaving every later word as it
// was. rec may be nil.
func TransformBlock(st *soc.State, block *models.Block, rec soc.Recorder) models.FaultResult {
	sample := st.Tick(constants.SetupCost, constants.SetupHammingWeight)
	if rec != nil {
		rec.Record(soc.PhaseSetup, sample)
	}

	iterations := 0
	for i := 0; i < constants.BlockWords; i += constants.PairStride {
		a, b := block.Pair(i)
		iterations++

		sample := st.Tick(constants.ButterflyCost, Popcount(a)+Popcount(b))
		if rec != nil {
			rec.Record(soc.PhaseTransform, sample)
		}

		if st.Stall {
			// Skipped instruction: the pair reads back as zero.
			block[i] = 0
			block[i+1] = 0
			return models.FaultedEarly(i, iterations)
		}

		// uint32 product wraps before the reduction.
		block[i] = (a * constants.MontgomeryR) % constants.Modulus
	}

	return models.Completed(iterations)
}
