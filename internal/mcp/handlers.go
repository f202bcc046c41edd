package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/glitchsim/internal/bootrom"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/hexinput"
	"github.com/nvandessel/glitchsim/internal/models"
	"github.com/nvandessel/glitchsim/internal/ratelimit"
	"github.com/nvandessel/glitchsim/internal/store"
	"github.com/nvandessel/glitchsim/internal/sweep"
	"github.com/nvandessel/glitchsim/internal/telemetry"
)

// MaxRandomCandidates caps the random images one glitch_sweep call may add.
const MaxRandomCandidates = 256

// MaxHistoryLimit caps glitch_history results.
const MaxHistoryLimit = 500

const (
	recentAttemptsURI = "glitchsim://attempts/recent"
	attemptURIPrefix  = "glitchsim://attempts/"
)

// registerTools registers all glitchsim MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "glitch_evaluate",
		Description: "Run the secure boot handler over a hex firmware image and report the verdict and final hardware state",
	}, s.handleGlitchEvaluate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "glitch_history",
		Description: "List recently recorded boot attempts with aggregate statistics",
	}, s.handleGlitchHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "glitch_sweep",
		Description: "Map the glitch window over the hamming weight of the first signature word pair (0..64)",
	}, s.handleGlitchSweep)

	return nil
}

// registerResources registers MCP resources for attempt history.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         recentAttemptsURI,
		Name:        "glitchsim-recent-attempts",
		Description: "The most recent boot attempts and their verdicts.",
		MIMEType:    "text/markdown",
	}, s.handleRecentAttemptsResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: attemptURIPrefix + "{id}",
		Name:        "glitchsim-attempt",
		Description: "Full details for one recorded boot attempt.",
		MIMEType:    "text/markdown",
	}, s.handleAttemptResource)

	return nil
}

// handleGlitchEvaluate implements the glitch_evaluate tool.
func (s *Server) handleGlitchEvaluate(ctx context.Context, req *sdk.CallToolRequest, args GlitchEvaluateInput) (_ *sdk.CallToolResult, _ GlitchEvaluateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("glitch_evaluate", start, retErr, sanitizeToolParams("glitch_evaluate", map[string]interface{}{
			"image_hex": args.ImageHex,
			"trace":     args.Trace,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "glitch_evaluate"); err != nil {
		return nil, GlitchEvaluateOutput{}, err
	}

	line := strings.TrimSpace(args.ImageHex)
	if line == "" {
		return nil, GlitchEvaluateOutput{}, fmt.Errorf("'image_hex' parameter is required")
	}

	var opts []bootrom.Option
	var trace *telemetry.Trace
	if args.Trace {
		trace = telemetry.NewTrace()
		opts = append(opts, bootrom.WithRecorder(trace))
	}

	report := bootrom.Evaluate(hexinput.Decode(line), opts...)
	out := evaluateOutput(report)
	if trace != nil {
		summary := trace.Summarize()
		out.Trace = &summary
	}

	attempt := report.Attempt(constants.SourceMCP)
	if s.record {
		id, err := s.store.RecordAttempt(ctx, attempt)
		if err != nil {
			s.logger.Warn("failed to record attempt", "error", err)
		} else {
			attempt.ID = id
			out.AttemptID = id
		}
	}
	s.attempts.LogAttempt(attempt)

	s.logger.Debug("glitch_evaluate",
		"outcome", report.Outcome.String(),
		"fault", report.Fault.String(),
		"cycles", report.State.Cycles)

	return nil, out, nil
}

func evaluateOutput(r bootrom.Report) GlitchEvaluateOutput {
	out := GlitchEvaluateOutput{
		Outcome:     r.Outcome.String(),
		Code:        r.Outcome.Code(),
		Fault:       string(r.Fault.Status),
		FaultPair:   -1,
		Iterations:  r.Fault.Iterations,
		Cycles:      r.State.Cycles,
		Ticks:       r.State.Ticks,
		Voltage:     r.State.Voltage,
		Temperature: r.State.Temperature,
		StatusReg:   r.State.Regs.Status,
		GlitchReg:   r.State.Regs.GlitchDet,
		InputLen:    r.InputLen,
		InputHash:   r.InputHash,
		Message:     bootrom.Message(r.Outcome),
	}
	if r.Fault.Faulted() {
		out.FaultPair = r.Fault.Pair
	}
	return out
}

// handleGlitchHistory implements the glitch_history tool.
func (s *Server) handleGlitchHistory(ctx context.Context, req *sdk.CallToolRequest, args GlitchHistoryInput) (_ *sdk.CallToolResult, _ GlitchHistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("glitch_history", start, retErr, sanitizeToolParams("glitch_history", map[string]interface{}{
			"limit":   args.Limit,
			"outcome": args.Outcome,
			"source":  args.Source,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "glitch_history"); err != nil {
		return nil, GlitchHistoryOutput{}, err
	}

	opts := store.ListOptions{Limit: min(args.Limit, MaxHistoryLimit)}
	if args.Outcome != "" {
		outcome, err := models.ParseOutcome(args.Outcome)
		if err != nil {
			return nil, GlitchHistoryOutput{}, err
		}
		opts.Outcome = outcome
	}
	if args.Source != "" {
		src := constants.Source(strings.ToLower(args.Source))
		if !src.Valid() {
			return nil, GlitchHistoryOutput{}, fmt.Errorf("invalid source %q (valid: cli, mcp, sweep)", args.Source)
		}
		opts.Source = src
	}

	attempts, err := s.store.ListAttempts(ctx, opts)
	if err != nil {
		return nil, GlitchHistoryOutput{}, fmt.Errorf("failed to list attempts: %w", err)
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GlitchHistoryOutput{}, fmt.Errorf("failed to compute stats: %w", err)
	}

	rows := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, attemptSummary(a))
	}

	return nil, GlitchHistoryOutput{
		Attempts: rows,
		Count:    len(rows),
		Stats:    stats,
	}, nil
}

func attemptSummary(a models.Attempt) AttemptSummary {
	return AttemptSummary{
		ID:        a.ID,
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
		Source:    string(a.Source),
		Outcome:   a.Outcome.String(),
		Fault:     string(a.Fault),
		FaultPair: a.FaultPair,
		Cycles:    a.Cycles,
		Voltage:   a.Voltage,
		InputLen:  a.InputLen,
	}
}

// handleGlitchSweep implements the glitch_sweep tool.
func (s *Server) handleGlitchSweep(ctx context.Context, req *sdk.CallToolRequest, args GlitchSweepInput) (_ *sdk.CallToolResult, _ GlitchSweepOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("glitch_sweep", start, retErr, sanitizeToolParams("glitch_sweep", map[string]interface{}{
			"random": args.Random,
			"seed":   args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "glitch_sweep"); err != nil {
		return nil, GlitchSweepOutput{}, err
	}

	if args.Random < 0 || args.Random > MaxRandomCandidates {
		return nil, GlitchSweepOutput{}, fmt.Errorf("random must be between 0 and %d, got %d", MaxRandomCandidates, args.Random)
	}
	seed := args.Seed
	if seed == 0 {
		seed = 1
	}

	candidates := sweep.HammingCandidates()
	if args.Random > 0 {
		candidates = append(candidates, sweep.RandomCandidates(args.Random, seed)...)
	}

	sw := sweep.New(s.workers)
	sw.SetLogger(s.logger, s.attempts)
	results, err := sw.Run(ctx, candidates)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, GlitchSweepOutput{}, fmt.Errorf("sweep cancelled: %w", err)
		}
		return nil, GlitchSweepOutput{}, fmt.Errorf("sweep failed: %w", err)
	}

	summary := sweep.Summarize(results)
	out := GlitchSweepOutput{
		Summary: summary,
		Results: make([]SweepRow, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, SweepRow{
			Name:        r.Name,
			PairHamming: r.PairHamming,
			Outcome:     r.Outcome.String(),
			Fault:       r.Fault.String(),
			Cycles:      r.Cycles,
		})
	}

	if lo, hi, ok := summary.WindowBounds(); ok {
		out.WindowFound = true
		out.WindowLow = lo
		out.WindowHigh = hi
		out.Message = fmt.Sprintf("Glitch window spans pair hamming weight %d..%d (%d of %d candidates faulted, %d accepted)",
			lo, hi, summary.Faulted, summary.Total, summary.Accepts)
	} else {
		out.Message = fmt.Sprintf("No glitch window found across %d candidates", summary.Total)
	}

	return nil, out, nil
}

// handleRecentAttemptsResource renders the latest attempts as markdown.
func (s *Server) handleRecentAttemptsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	attempts, err := s.store.ListAttempts(ctx, store.ListOptions{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Recent Boot Attempts\n\n")
	if len(attempts) == 0 {
		sb.WriteString("No attempts recorded yet. Submit an image with `glitch_evaluate`.\n")
	} else {
		sb.WriteString("| ID | Source | Outcome | Fault | Cycles |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, a := range attempts {
			fault := string(a.Fault)
			if a.FaultPair >= 0 {
				fault = fmt.Sprintf("%s @%d", fault, a.FaultPair)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n", a.ID, a.Source, a.Outcome, fault, a.Cycles))
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      recentAttemptsURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleAttemptResource returns full details for one attempt.
// URI format: glitchsim://attempts/{id}
func (s *Server) handleAttemptResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, attemptURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := strings.TrimPrefix(uri, attemptURIPrefix)
	if id == "" {
		return nil, fmt.Errorf("attempt ID is required")
	}

	a, err := s.store.GetAttempt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt %s: %w", id, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Attempt: %s\n\n", a.ID))
	sb.WriteString(fmt.Sprintf("**Recorded:** %s\n", a.Timestamp.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", a.Source))
	sb.WriteString(fmt.Sprintf("**Outcome:** %s (0x%02X)\n", a.Outcome, a.Outcome.Code()))
	sb.WriteString(fmt.Sprintf("**Fault:** %s\n", a.Fault))
	if a.FaultPair >= 0 {
		sb.WriteString(fmt.Sprintf("**Fault pair:** %d\n", a.FaultPair))
	}
	sb.WriteString("\n## Final state\n\n")
	sb.WriteString(fmt.Sprintf("- Cycles: %d\n", a.Cycles))
	sb.WriteString(fmt.Sprintf("- Ticks: %d\n", a.Ticks))
	sb.WriteString(fmt.Sprintf("- Voltage: %.3f V\n", a.Voltage))
	sb.WriteString(fmt.Sprintf("- Temperature: %.2f C\n", a.Temp))
	sb.WriteString(fmt.Sprintf("- Status register: 0x%08X\n", a.StatusReg))
	sb.WriteString(fmt.Sprintf("- Glitch register: 0x%08X\n", a.GlitchReg))
	sb.WriteString(fmt.Sprintf("\n**Input:** %d bytes, sha256 %s\n", a.InputLen, a.InputHash))

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}
