package scenarios

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
)

// Scenario is one canned boot attempt.
type Scenario struct {
	Name        string
	Description string
	Image       []byte

	// Repeat evaluates the image this many times back to back, each on a
	// fresh SoC model. Zero means once.
	Repeat int

	Expect Expectation
}

// Expectation is what a scenario should produce. Zero fields are not checked,
// except Outcome which is always checked.
type Expectation struct {
	Outcome models.Outcome
	Fault   models.FaultResult
	Ticks   int
	Cycles  uint64
	Block0  *uint32 // first scratchpad word after the transform
}

func (s Scenario) runs() int {
	if s.Repeat < 1 {
		return 1
	}
	return s.Repeat
}

// Image returns a minimum-size image whose signature starts with prefix.
func Image(prefix ...byte) []byte {
	buf := make([]byte, constants.MinImageSize)
	copy(buf[constants.MessageSize:], prefix)
	return buf
}

func u32(v uint32) *uint32 { return &v }

// Catalog returns the built-in scenarios in a stable order.
func Catalog() []Scenario {
	return []Scenario{
		{
			Name:        "short-input",
			Description: "100-byte image is rejected as malformed before any simulation",
			Image:       bytes.Repeat([]byte{0xAB}, 100),
			Expect:      Expectation{Outcome: models.OutcomeMalformedInput},
		},
		{
			Name:        "all-zero",
			Description: "zero signature: the quiet first pair after the setup spike glitches and wipes the leading words",
			Image:       Image(),
			Expect: Expectation{
				Outcome: models.OutcomeAccept,
				Fault:   models.FaultedEarly(0, 1),
				Ticks:   258,
				Cycles:  316,
				Block0:  u32(0),
			},
		},
		{
			Name:        "single-bit",
			Description: "signature word 0 = 1: still far inside the glitch window",
			Image:       Image(0x01),
			Expect: Expectation{
				Outcome: models.OutcomeAccept,
				Fault:   models.FaultedEarly(0, 1),
				Ticks:   258,
				Block0:  u32(0),
			},
		},
		{
			Name:        "saturated",
			Description: "1024 bytes of 0xFF: every pair draws full current, no glitch, transform completes",
			Image:       Image(bytes.Repeat([]byte{0xFF}, constants.BlockLoadBytes)...),
			Expect: Expectation{
				Outcome: models.OutcomeReject,
				Fault:   models.Completed(64),
				Ticks:   321,
				Cycles:  946,
				Block0:  u32(4193790),
			},
		},
		{
			Name:        "late-fault",
			Description: "hamming 63 first pair survives; the zero pair after it glitches too late to matter",
			Image:       Image(0xFF, 0xFF, 0xFF, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF),
			Expect: Expectation{
				Outcome: models.OutcomeReject,
				Fault:   models.FaultedEarly(4, 2),
				Ticks:   259,
				Cycles:  326,
			},
		},
		{
			Name:        "window-edge",
			Description: "first pair hamming 62: the heaviest pair that still glitches",
			Image:       Image(0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x3F),
			Expect: Expectation{
				Outcome: models.OutcomeAccept,
				Fault:   models.FaultedEarly(0, 1),
			},
		},
		{
			Name:        "back-to-back",
			Description: "saturated image evaluated twice on fresh models yields identical reports",
			Image:       Image(bytes.Repeat([]byte{0xFF}, constants.BlockLoadBytes)...),
			Repeat:      2,
			Expect: Expectation{
				Outcome: models.OutcomeReject,
				Fault:   models.Completed(64),
				Ticks:   321,
			},
		},
	}
}

// Names returns the catalog scenario names, sorted.
func Names() []string {
	var names []string
	for _, s := range Catalog() {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named catalog scenario.
func Lookup(name string) (Scenario, error) {
	for _, s := range Catalog() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q (known: %v)", name, Names())
}
