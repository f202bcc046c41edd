// Package bootrom implements the secure-boot security handler: it loads a
// firmware image's signature into the scratchpad, runs the butterfly pass on
// a freshly reset SoC model and maps the result to a boot verdict.
//
// Every evaluation owns its own soc.State and models.Block. Nothing is
// shared between calls, so Evaluate is safe to call from many goroutines.
package bootrom

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/ntt"
	"github.com/nvandessel/glitchsim/internal/soc"
)

// Report is the full result of one evaluation.
type Report struct {
	Outcome models.Outcome     `json:"outcome"`
	Fault   models.FaultResult `json:"fault"`
	State   soc.Snapshot       `json:"state"`
	Block   models.Block       `json:"-"`

	// InputHash is the hex SHA-256 of the whole image.
	InputHash string `json:"input_hash"`
	InputLen  int    `json:"input_len"`

	// MessageDigest is the hex SHA-256 of the message section. It is
	// bookkeeping only and never influences the verdict.
	MessageDigest string `json:"message_digest,omitempty"`
}

// Option configures an evaluation.
type Option func(*options)

type options struct {
	recorder soc.Recorder
}

// WithRecorder forwards every tick sample of the evaluation to rec.
func WithRecorder(rec soc.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

// Verify evaluates stream and returns only the verdict.
func Verify(stream []byte) models.Outcome {
	return Evaluate(stream).Outcome
}

// Evaluate runs the security handler over a firmware image.
//
// Images shorter than constants.MinImageSize are rejected as malformed
// before any simulation state is constructed.
func Evaluate(stream []byte, opts ...Option) Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sum := sha256.Sum256(stream)
	report := Report{
		InputHash: hex.EncodeToString(sum[:]),
		InputLen:  len(stream),
	}

	if len(stream) < constants.MinImageSize {
		report.Outcome = models.OutcomeMalformedInput
		return report
	}

	message := stream[:constants.MessageSize]
	signature := stream[constants.MessageSize:]
	msgSum := sha256.Sum256(message)
	report.MessageDigest = hex.EncodeToString(msgSum[:])

	st := soc.New()
	block := loadScratchpad(st, signature, o.recorder)

	report.Fault = ntt.TransformBlock(st, &block, o.recorder)

	if block.LeadingZero() {
		report.Outcome = models.OutcomeAccept
	} else {
		report.Outcome = models.OutcomeReject
	}
	report.State = st.Snapshot()
	report.Block = block

	return report
}

// loadScratchpad packs the first constants.BlockLoadBytes of signature into
// little-endian words. Each load is one cycle of work whose power draw
// follows the word's hamming weight.
func loadScratchpad(st *soc.State, signature []byte, rec soc.Recorder) models.Block {
	var block models.Block
	for i := range block {
		word := binary.LittleEndian.Uint32(signature[i*4:])
		block[i] = word

		sample := st.Tick(constants.LoadCost, ntt.Popcount(word))
		if rec != nil {
			rec.Record(soc.PhaseLoad, sample)
		}
	}
	return block
}
