package bootrom

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/soc"
)

// image returns a minimum-size image whose signature starts with prefix.
func image(prefix ...byte) []byte {
	buf := make([]byte, constants.MinImageSize)
	copy(buf[constants.MessageSize:], prefix)
	return buf
}

type phaseCounter map[soc.Phase]int

func (c phaseCounter) Record(phase soc.Phase, s soc.Sample) {
	c[phase]++
}

func TestEvaluate_ShortInputIsMalformed(t *testing.T) {
	for _, n := range []int{0, 1, 32, 100, 1024, constants.MinImageSize - 1} {
		rec := phaseCounter{}
		report := Evaluate(bytes.Repeat([]byte{0xFF}, n), WithRecorder(rec))

		if report.Outcome != models.OutcomeMalformedInput {
			t.Errorf("len %d: Outcome = %v, want malformed", n, report.Outcome)
		}
		if len(rec) != 0 {
			t.Errorf("len %d: recorded %v ticks, want none", n, rec)
		}
		if report.Fault.Status != "" {
			t.Errorf("len %d: Fault = %+v, want zero value", n, report.Fault)
		}
		if report.InputLen != n {
			t.Errorf("len %d: InputLen = %d", n, report.InputLen)
		}
	}
}

func TestVerify_OutcomeCodes(t *testing.T) {
	if got := Verify(make([]byte, 100)); got.Code() != 0xEE {
		t.Errorf("Verify(100 bytes) = %#x, want 0xEE", got.Code())
	}
	if got := Verify(image()); got.Code() != 0x01 {
		t.Errorf("Verify(zero image) = %#x, want 0x01", got.Code())
	}
	if got := Verify(image(bytes.Repeat([]byte{0xFF}, 1024)...)); got.Code() != 0xFF {
		t.Errorf("Verify(saturated image) = %#x, want 0xFF", got.Code())
	}
}

func TestEvaluate_ZeroImage(t *testing.T) {
	report := Evaluate(image())

	// The setup tick draws 5.8 and the first pair only 1.0; the regulator
	// overshoots and the first pair is skipped.
	if report.Outcome != models.OutcomeAccept {
		t.Errorf("Outcome = %v, want accept", report.Outcome)
	}
	if want := models.FaultedEarly(0, 1); report.Fault != want {
		t.Errorf("Fault = %+v, want %+v", report.Fault, want)
	}
	if report.State.Cycles != 256+50+10 {
		t.Errorf("Cycles = %d, want %d", report.State.Cycles, 256+50+10)
	}
	if report.State.Regs.Status != soc.StatusBrownout {
		t.Errorf("Status = %#x, want brownout from the setup tick", report.State.Regs.Status)
	}
	if report.State.Regs.GlitchDet != soc.GlitchSentinel {
		t.Errorf("GlitchDet = %#x, want sentinel", report.State.Regs.GlitchDet)
	}
}

func TestEvaluate_SingleBitWord(t *testing.T) {
	report := Evaluate(image(0x01))

	if report.Outcome != models.OutcomeAccept {
		t.Errorf("Outcome = %v, want accept", report.Outcome)
	}
	if !report.Fault.Faulted() || report.Fault.Pair != 0 {
		t.Errorf("Fault = %+v, want faulted at pair 0", report.Fault)
	}
}

func TestEvaluate_SaturatedSignature(t *testing.T) {
	report := Evaluate(image(bytes.Repeat([]byte{0xFF}, 1024)...))

	// Sustained maximal weight keeps di/dt small after the setup tick.
	if report.Outcome != models.OutcomeReject {
		t.Errorf("Outcome = %v, want reject", report.Outcome)
	}
	if report.Fault.Faulted() {
		t.Errorf("Fault = %v, want completed", report.Fault)
	}
	if report.Block[0] != 4193790 || report.Block[1] != 0xFFFFFFFF {
		t.Errorf("Block[0:2] = %d,%#x, want 4193790,0xffffffff", report.Block[0], report.Block[1])
	}
	if report.State.Ticks != 256+1+64 {
		t.Errorf("Ticks = %d, want %d", report.State.Ticks, 256+1+64)
	}
}

func TestEvaluate_LateFaultRejects(t *testing.T) {
	// First pair weighs 63 and survives; the empty second pair stalls.
	report := Evaluate(image(0xFF, 0xFF, 0xFF, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF))

	if report.Outcome != models.OutcomeReject {
		t.Errorf("Outcome = %v, want reject", report.Outcome)
	}
	if want := models.FaultedEarly(4, 2); report.Fault != want {
		t.Errorf("Fault = %+v, want %+v", report.Fault, want)
	}
	if report.Block[1] != 0xFFFFFFFE {
		t.Errorf("Block[1] = %#x, want untouched 0xfffffffe", report.Block[1])
	}
}

func TestEvaluate_LittleEndianLoad(t *testing.T) {
	report := Evaluate(image(0x04, 0x03, 0x02, 0x01))

	// Faulted at pair 0, so words 2.. are exactly as loaded.
	var want models.Block
	if diff := cmp.Diff(want[2:], report.Block[2:]); diff != "" {
		t.Errorf("block tail mismatch (-want +got):\n%s", diff)
	}

	prefix := image()
	copy(prefix[constants.MessageSize+8:], []byte{0x04, 0x03, 0x02, 0x01})
	report = Evaluate(prefix)
	if report.Block[2] != 0x01020304 {
		t.Errorf("Block[2] = %#x, want 0x01020304", report.Block[2])
	}
}

func TestEvaluate_MessageDoesNotInfluenceVerdict(t *testing.T) {
	a := image(0xFF, 0xFF, 0xFF, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF)
	b := append([]byte(nil), a...)
	for i := 0; i < constants.MessageSize; i++ {
		b[i] = byte(i * 7)
	}

	ra, rb := Evaluate(a), Evaluate(b)

	if ra.Outcome != rb.Outcome || ra.Fault != rb.Fault || ra.State != rb.State {
		t.Errorf("message changed the evaluation: %+v vs %+v", ra, rb)
	}
	if ra.MessageDigest == rb.MessageDigest {
		t.Error("MessageDigest should differ for different messages")
	}
}

func TestEvaluate_BytesBeyondLoadWindowIgnored(t *testing.T) {
	a := image()
	b := image()
	for i := constants.MessageSize + constants.BlockLoadBytes; i < len(b); i++ {
		b[i] = 0xFF
	}
	b = append(b, 0xAA, 0xBB)

	ra, rb := Evaluate(a), Evaluate(b)
	if ra.Outcome != rb.Outcome || ra.State != rb.State || ra.Block != rb.Block {
		t.Errorf("trailing bytes changed the evaluation")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	inputs := [][]byte{
		image(),
		image(0x01),
		image(bytes.Repeat([]byte{0xFF}, 1024)...),
		image(0xFF, 0xFF, 0xFF, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF),
	}
	for i, in := range inputs {
		first := Evaluate(in)
		second := Evaluate(in)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("input %d: repeated evaluation differs (-first +second):\n%s", i, diff)
		}
	}
}

func TestEvaluate_BackToBackSaturated(t *testing.T) {
	in := image(bytes.Repeat([]byte{0xFF}, 1024)...)

	first := Evaluate(in)
	second := Evaluate(in)

	if first.Outcome != second.Outcome || first.Block != second.Block || first.State != second.State {
		t.Errorf("back-to-back evaluations differ: %v/%v", first.Outcome, second.Outcome)
	}
}

func TestEvaluate_LoadPhaseNeverStalls(t *testing.T) {
	inputs := [][]byte{
		image(),
		image(bytes.Repeat([]byte{0xFF}, 1024)...),
		image(bytes.Repeat([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0}, 128)...),
	}
	for i, in := range inputs {
		w := &loadWatch{}
		Evaluate(in, WithRecorder(w))
		if w.loads != constants.BlockWords {
			t.Errorf("input %d: %d load ticks, want %d", i, w.loads, constants.BlockWords)
		}
		if w.stalls != 0 {
			t.Errorf("input %d: %d load ticks stalled, want 0", i, w.stalls)
		}
	}
}

type loadWatch struct {
	loads  int
	stalls int
}

func (w *loadWatch) Record(phase soc.Phase, s soc.Sample) {
	if phase != soc.PhaseLoad {
		return
	}
	w.loads++
	if s.Stall {
		w.stalls++
	}
}

func TestReport_Attempt(t *testing.T) {
	faulted := Evaluate(image()).Attempt(constants.SourceCLI)
	if faulted.Source != constants.SourceCLI {
		t.Errorf("Source = %q, want cli", faulted.Source)
	}
	if faulted.Outcome != models.OutcomeAccept || faulted.Fault != models.FaultFaultedEarly {
		t.Errorf("zero image attempt = %v/%v, want accept/faulted-early", faulted.Outcome, faulted.Fault)
	}
	if faulted.FaultPair != 0 {
		t.Errorf("FaultPair = %d, want 0", faulted.FaultPair)
	}
	if faulted.Ticks != 258 || faulted.Cycles != 316 {
		t.Errorf("Ticks/Cycles = %d/%d, want 258/316", faulted.Ticks, faulted.Cycles)
	}
	if faulted.GlitchReg != soc.GlitchSentinel {
		t.Errorf("GlitchReg = %#x, want %#x", faulted.GlitchReg, soc.GlitchSentinel)
	}

	completed := Evaluate(image(bytes.Repeat([]byte{0xFF}, 1024)...)).Attempt(constants.SourceSweep)
	if completed.FaultPair != -1 {
		t.Errorf("completed FaultPair = %d, want -1", completed.FaultPair)
	}

	malformed := Evaluate([]byte{1, 2, 3}).Attempt(constants.SourceMCP)
	if malformed.Outcome != models.OutcomeMalformedInput || malformed.Fault != "" || malformed.InputLen != 3 {
		t.Errorf("malformed attempt = %+v", malformed)
	}
}
