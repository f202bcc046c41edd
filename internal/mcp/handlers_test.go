package mcp

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/glitchsim/internal/bootrom"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/ratelimit"
	"github.com/nvandessel/glitchsim/internal/store"
)

// setupTestServer returns a recording server backed by an in-memory store
// and the directory holding its audit log.
func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	auditDir := t.TempDir()

	cfg := &Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Store:    store.NewInMemoryAttemptStore(),
		Record:   true,
		Workers:  2,
		AuditDir: auditDir,
	}

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	return server, auditDir
}

// imageHex returns a minimum-size image whose signature starts with prefix.
func imageHex(prefix ...byte) string {
	buf := make([]byte, constants.MinImageSize)
	copy(buf[constants.MessageSize:], prefix)
	return hex.EncodeToString(buf)
}

func saturatedHex() string {
	return imageHex(bytes.Repeat([]byte{0xFF}, constants.BlockLoadBytes)...)
}

func TestHandleGlitchEvaluate_ZeroImage(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	result, output, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{
		ImageHex: imageHex(),
	})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}

	want := GlitchEvaluateOutput{
		AttemptID:  output.AttemptID,
		Outcome:    "accept",
		Code:       0x01,
		Fault:      string(models.FaultFaultedEarly),
		FaultPair:  0,
		Iterations: 1,
		Cycles:     316,
		Ticks:      258,
		InputLen:   constants.MinImageSize,
		Message:    bootrom.MsgAccepted,
	}
	ignore := func(o GlitchEvaluateOutput) GlitchEvaluateOutput {
		o.Voltage, o.Temperature, o.StatusReg, o.GlitchReg, o.InputHash = 0, 0, 0, 0, ""
		return o
	}
	if diff := cmp.Diff(want, ignore(output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if output.AttemptID == "" {
		t.Error("expected a recorded attempt ID")
	}
	if len(output.InputHash) != 64 {
		t.Errorf("InputHash = %q, want 64 hex chars", output.InputHash)
	}
}

func TestHandleGlitchEvaluate_Saturated(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, output, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{
		ImageHex: saturatedHex(),
	})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}

	if output.Outcome != "reject" || output.Code != 0xFF {
		t.Errorf("outcome = %s (0x%02X), want reject (0xFF)", output.Outcome, output.Code)
	}
	if output.Fault != string(models.FaultCompleted) || output.Iterations != 64 || output.FaultPair != -1 {
		t.Errorf("fault = %s/%d/%d, want completed/64/-1", output.Fault, output.Iterations, output.FaultPair)
	}
	if output.Ticks != 321 || output.Cycles != 946 {
		t.Errorf("ticks/cycles = %d/%d, want 321/946", output.Ticks, output.Cycles)
	}
	if output.Message != bootrom.MsgRejected {
		t.Errorf("message = %q, want %q", output.Message, bootrom.MsgRejected)
	}
}

func TestHandleGlitchEvaluate_Malformed(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, output, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{
		ImageHex: strings.Repeat("ab", 100),
	})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}

	if output.Outcome != "malformed" || output.Code != 0xEE {
		t.Errorf("outcome = %s (0x%02X), want malformed (0xEE)", output.Outcome, output.Code)
	}
	if output.InputLen != 100 || output.Ticks != 0 {
		t.Errorf("input_len/ticks = %d/%d, want 100/0", output.InputLen, output.Ticks)
	}
	if output.Message != bootrom.MsgCorrupted {
		t.Errorf("message = %q, want %q", output.Message, bootrom.MsgCorrupted)
	}
}

func TestHandleGlitchEvaluate_StopsAtNonHex(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	// A stray character truncates the decoded image below the minimum size.
	line := imageHex()
	line = line[:100] + "zz" + line[102:]

	_, output, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: line})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}
	if output.Outcome != "malformed" || output.InputLen != 50 {
		t.Errorf("outcome/input_len = %s/%d, want malformed/50", output.Outcome, output.InputLen)
	}
}

func TestHandleGlitchEvaluate_Trace(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, output, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{
		ImageHex: imageHex(),
		Trace:    true,
	})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}
	if output.Trace == nil {
		t.Fatal("expected trace summary")
	}
	if output.Trace.Ticks != output.Ticks {
		t.Errorf("trace ticks = %d, want %d", output.Trace.Ticks, output.Ticks)
	}
	if output.Trace.Glitches < 1 || output.Trace.FirstGlitchSeq != 258 {
		t.Errorf("glitches/first = %d/%d, want >=1/258", output.Trace.Glitches, output.Trace.FirstGlitchSeq)
	}
	if output.Trace.Brownouts < 1 {
		t.Errorf("brownouts = %d, want >= 1 (setup tick)", output.Trace.Brownouts)
	}
}

func TestHandleGlitchEvaluate_MissingImage(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, _, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: "  "})
	if err == nil {
		t.Fatal("expected error for empty image_hex")
	}
}

func TestHandleGlitchEvaluate_NoRecord(t *testing.T) {
	st := store.NewInMemoryAttemptStore()
	server, err := NewServer(&Config{Name: "test-server", Store: st})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	_, output, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: imageHex()})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}
	if output.AttemptID != "" {
		t.Errorf("AttemptID = %q, want empty when recording is off", output.AttemptID)
	}
	stats, _ := st.Stats(context.Background())
	if stats.Total != 0 {
		t.Errorf("stored %d attempts, want 0", stats.Total)
	}
}

func TestHandleGlitchEvaluate_RateLimited(t *testing.T) {
	server, err := NewServer(&Config{
		Name:  "test-server",
		Store: store.NewInMemoryAttemptStore(),
		Limits: ratelimit.ToolLimits{
			EvaluatePerMinute: 0.001,
		},
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	var limited bool
	for i := 0; i < 20; i++ {
		_, _, err := server.handleGlitchEvaluate(context.Background(), &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: "00"})
		if err != nil {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected glitch_evaluate to be rate limited after its burst")
	}
}

func TestHandleGlitchHistory(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	for _, img := range []string{imageHex(), saturatedHex(), "abcd"} {
		if _, _, err := server.handleGlitchEvaluate(ctx, &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: img}); err != nil {
			t.Fatalf("handleGlitchEvaluate failed: %v", err)
		}
	}

	_, output, err := server.handleGlitchHistory(ctx, &sdk.CallToolRequest{}, GlitchHistoryInput{})
	if err != nil {
		t.Fatalf("handleGlitchHistory failed: %v", err)
	}
	if output.Count != 3 || len(output.Attempts) != 3 {
		t.Fatalf("count = %d, want 3", output.Count)
	}
	if output.Attempts[0].Outcome != "malformed" {
		t.Errorf("newest outcome = %s, want malformed", output.Attempts[0].Outcome)
	}
	for _, a := range output.Attempts {
		if a.Source != string(constants.SourceMCP) {
			t.Errorf("source = %s, want mcp", a.Source)
		}
	}

	wantStats := models.AttemptStats{
		Total:          3,
		ByOutcome:      map[string]int{"accept": 1, "reject": 1, "malformed": 1},
		Faulted:        1,
		FaultedAccepts: 1,
	}
	if diff := cmp.Diff(wantStats, output.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	_, filtered, err := server.handleGlitchHistory(ctx, &sdk.CallToolRequest{}, GlitchHistoryInput{Outcome: "accept"})
	if err != nil {
		t.Fatalf("handleGlitchHistory failed: %v", err)
	}
	if filtered.Count != 1 || filtered.Attempts[0].FaultPair != 0 {
		t.Errorf("filtered = %+v, want one accept faulted at pair 0", filtered.Attempts)
	}

	_, limited, err := server.handleGlitchHistory(ctx, &sdk.CallToolRequest{}, GlitchHistoryInput{Limit: 1})
	if err != nil {
		t.Fatalf("handleGlitchHistory failed: %v", err)
	}
	if limited.Count != 1 {
		t.Errorf("limited count = %d, want 1", limited.Count)
	}
}

func TestHandleGlitchHistory_InvalidFilters(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	if _, _, err := server.handleGlitchHistory(ctx, &sdk.CallToolRequest{}, GlitchHistoryInput{Outcome: "maybe"}); err == nil {
		t.Error("expected error for unknown outcome")
	}
	if _, _, err := server.handleGlitchHistory(ctx, &sdk.CallToolRequest{}, GlitchHistoryInput{Source: "fax"}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestHandleGlitchSweep(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, output, err := server.handleGlitchSweep(context.Background(), &sdk.CallToolRequest{}, GlitchSweepInput{})
	if err != nil {
		t.Fatalf("handleGlitchSweep failed: %v", err)
	}

	if output.Summary.Total != 65 || len(output.Results) != 65 {
		t.Fatalf("total = %d, want 65", output.Summary.Total)
	}
	if !output.WindowFound || output.WindowLow != 0 || output.WindowHigh != 62 {
		t.Errorf("window = %v %d..%d, want 0..62", output.WindowFound, output.WindowLow, output.WindowHigh)
	}
	if output.Summary.Accepts != 63 || output.Summary.Rejects != 2 {
		t.Errorf("accepts/rejects = %d/%d, want 63/2", output.Summary.Accepts, output.Summary.Rejects)
	}
	for i, r := range output.Results {
		if r.PairHamming != i {
			t.Fatalf("results[%d].PairHamming = %d, want candidate order", i, r.PairHamming)
		}
	}
	if !strings.Contains(output.Message, "0..62") {
		t.Errorf("message = %q, want window bounds", output.Message)
	}
}

func TestHandleGlitchSweep_Random(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, output, err := server.handleGlitchSweep(context.Background(), &sdk.CallToolRequest{}, GlitchSweepInput{Random: 4, Seed: 7})
	if err != nil {
		t.Fatalf("handleGlitchSweep failed: %v", err)
	}
	if output.Summary.Total != 69 {
		t.Errorf("total = %d, want 69", output.Summary.Total)
	}
	for _, r := range output.Results[65:] {
		if r.PairHamming != -1 {
			t.Errorf("random candidate %s PairHamming = %d, want -1", r.Name, r.PairHamming)
		}
	}

	if _, _, err := server.handleGlitchSweep(context.Background(), &sdk.CallToolRequest{}, GlitchSweepInput{Random: MaxRandomCandidates + 1}); err == nil {
		t.Error("expected error above MaxRandomCandidates")
	}
}

func TestHandleRecentAttemptsResource(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	res, err := server.handleRecentAttemptsResource(ctx, &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleRecentAttemptsResource failed: %v", err)
	}
	if !strings.Contains(res.Contents[0].Text, "No attempts recorded yet") {
		t.Errorf("empty resource text = %q", res.Contents[0].Text)
	}

	_, out, err := server.handleGlitchEvaluate(ctx, &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: imageHex()})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}

	res, err = server.handleRecentAttemptsResource(ctx, &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleRecentAttemptsResource failed: %v", err)
	}
	text := res.Contents[0].Text
	if !strings.Contains(text, out.AttemptID) || !strings.Contains(text, "faulted-early @0") {
		t.Errorf("resource text missing attempt row:\n%s", text)
	}
	if res.Contents[0].MIMEType != "text/markdown" {
		t.Errorf("MIMEType = %q, want text/markdown", res.Contents[0].MIMEType)
	}
}

func TestHandleAttemptResource(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	_, out, err := server.handleGlitchEvaluate(ctx, &sdk.CallToolRequest{}, GlitchEvaluateInput{ImageHex: saturatedHex()})
	if err != nil {
		t.Fatalf("handleGlitchEvaluate failed: %v", err)
	}

	req := &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: attemptURIPrefix + out.AttemptID}}
	res, err := server.handleAttemptResource(ctx, req)
	if err != nil {
		t.Fatalf("handleAttemptResource failed: %v", err)
	}
	text := res.Contents[0].Text
	for _, want := range []string{"# Attempt: " + out.AttemptID, "reject (0xFF)", "Cycles: 946"} {
		if !strings.Contains(text, want) {
			t.Errorf("resource text missing %q:\n%s", want, text)
		}
	}

	missing := &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: attemptURIPrefix + "nope"}}
	if _, err := server.handleAttemptResource(ctx, missing); err == nil {
		t.Error("expected error for unknown attempt")
	}

	bad := &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: "other://x"}}
	if _, err := server.handleAttemptResource(ctx, bad); err == nil {
		t.Error("expected error for foreign URI")
	}
}
