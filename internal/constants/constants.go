// Package constants provides named constants used throughout the glitchsim codebase.
// This centralizes the firmware image layout and the simulated hardware limits.
package constants

// Firmware image layout
const (
	// MessageSize is the number of leading image bytes holding the signed message.
	MessageSize = 32

	// SignatureSize is the number of signature bytes following the message.
	SignatureSize = 3293

	// MinImageSize is the shortest image the security handler will evaluate.
	// It is also the capacity of the boot console input buffer.
	MinImageSize = MessageSize + SignatureSize

	// BlockWords is the number of 32-bit words loaded into the scratchpad.
	BlockWords = 256

	// BlockLoadBytes is the number of signature bytes consumed by the scratchpad load.
	BlockLoadBytes = BlockWords * 4

	// MaxInputLineLen is the maximum length of one hex line read from the console.
	MaxInputLineLen = 7000
)

// Transform constants
const (
	// Modulus is the prime modulus applied by the butterfly stage.
	Modulus = 8380417

	// MontgomeryR is the multiplier applied to the even word of each pair.
	MontgomeryR = 2

	// PairStride is the distance between the first words of two consecutive pairs.
	PairStride = 4
)

// Workload costs fed to the physics engine
const (
	// LoadCost is the instruction cost of loading one word into the scratchpad.
	LoadCost = 1

	// SetupCost is the fixed per-invocation overhead of the transform.
	SetupCost = 50

	// SetupHammingWeight is the modelled average data weight of the setup workload.
	SetupHammingWeight = 16

	// ButterflyCost is the instruction cost of one butterfly pair.
	ButterflyCost = 10
)

// Hardware limits from the HAL register map
const (
	// ThermalLimitCentiC is the die thermal limit in hundredths of a degree (85.00 C).
	ThermalLimitCentiC = 8500

	// VoltageRailMilliV is the nominal core rail in millivolts.
	VoltageRailMilliV = 1200

	// ClockFreqHz is the simulated core clock.
	ClockFreqHz = 100_000_000
)

// Sweep defaults
const (
	// DefaultSweepWorkers is the default number of concurrent sweep evaluations.
	DefaultSweepWorkers = 4

	// MaxPairHammingWeight is the largest combined hamming weight of one word pair.
	MaxPairHammingWeight = 64
)
