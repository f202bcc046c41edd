package models

import "github.com/nvandessel/glitchsim/internal/constants"

// Block is the scratchpad of 32-bit words the transform operates on in place.
// A Block is rebuilt for every evaluation and never shared between runs.
type Block [constants.BlockWords]uint32

// Pair returns the two words at the start of the pair beginning at index i.
func (b *Block) Pair(i int) (uint32, uint32) {
	return b[i], b[i+1]
}

// LeadingZero reports whether the first two words are both zero.
func (b *Block) LeadingZero() bool {
	return b[0] == 0 && b[1] == 0
}
