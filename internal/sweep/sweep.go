// Package sweep maps the glitch window by evaluating many candidate images
// concurrently. Every candidate is evaluated on its own freshly reset SoC
// model, so results do not depend on scheduling.
package sweep

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/glitchsim/internal/bootrom"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/logging"
	"github.com/nvandessel/glitchsim/internal/models"
)

// Candidate is one image to evaluate.
type Candidate struct {
	Name string
	// PairHamming is the combined hamming weight of the first word pair,
	// or -1 for random images.
	PairHamming int
	Image       []byte
}

// Result is the outcome of one candidate.
type Result struct {
	Name        string             `json:"name"`
	PairHamming int                `json:"pair_hamming"`
	Outcome     models.Outcome     `json:"outcome"`
	Fault       models.FaultResult `json:"fault"`
	Cycles      uint64             `json:"cycles"`
	Ticks       int                `json:"ticks"`
	Voltage     float32            `json:"voltage"`

	report bootrom.Report
}

// Report returns the full evaluation report behind the result.
func (r Result) Report() bootrom.Report {
	return r.report
}

// HammingCandidates returns one minimum-size image per combined hamming
// weight 0..64 of the first signature word pair. All other bytes are zero.
func HammingCandidates() []Candidate {
	out := make([]Candidate, 0, constants.MaxPairHammingWeight+1)
	for hw := 0; hw <= constants.MaxPairHammingWeight; hw++ {
		out = append(out, Candidate{
			Name:        fmt.Sprintf("pair-hw-%02d", hw),
			PairHamming: hw,
			Image:       pairImage(hw),
		})
	}
	return out
}

// pairImage sets hw low bits across the first two signature words,
// filling word 0 first.
func pairImage(hw int) []byte {
	img := make([]byte, constants.MinImageSize)
	w0 := min(hw, 32)
	w1 := hw - w0
	binary.LittleEndian.PutUint32(img[constants.MessageSize:], lowBits(w0))
	binary.LittleEndian.PutUint32(img[constants.MessageSize+4:], lowBits(w1))
	return img
}

func lowBits(n int) uint32 {
	return uint32((uint64(1) << n) - 1)
}

// RandomCandidates returns n minimum-size images of pseudo-random bytes.
// The same seed always yields the same images.
func RandomCandidates(n int, seed uint64) []Candidate {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		img := make([]byte, constants.MinImageSize)
		for j := range img {
			img[j] = byte(rng.Uint32())
		}
		out = append(out, Candidate{
			Name:        fmt.Sprintf("random-%04d", i),
			PairHamming: -1,
			Image:       img,
		})
	}
	return out
}

// Sweeper evaluates candidates with bounded concurrency.
type Sweeper struct {
	workers  int
	logger   *slog.Logger
	attempts *logging.AttemptLogger
	onResult func(Result)
}

// New creates a Sweeper. workers < 1 selects constants.DefaultSweepWorkers.
func New(workers int) *Sweeper {
	if workers < 1 {
		workers = constants.DefaultSweepWorkers
	}
	return &Sweeper{workers: workers, logger: logging.Discard()}
}

// SetLogger sets the structured logger and attempt logger for observability.
func (s *Sweeper) SetLogger(logger *slog.Logger, attempts *logging.AttemptLogger) {
	if logger != nil {
		s.logger = logger
	}
	s.attempts = attempts
}

// OnResult registers fn to be called once per finished candidate. Calls are
// serialized but arrive in completion order.
func (s *Sweeper) OnResult(fn func(Result)) {
	s.onResult = fn
}

// Workers returns the concurrency limit.
func (s *Sweeper) Workers() int {
	return s.workers
}

// Run evaluates every candidate and returns results in candidate order.
// It stops early and returns ctx.Err() if the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, candidates []Candidate) ([]Result, error) {
	results := make([]Result, len(candidates))
	done := make(chan Result)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for r := range done {
			s.attempts.LogAttempt(r.report.Attempt(constants.SourceSweep))
			if s.onResult != nil {
				s.onResult(r)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := evaluate(c)
			s.logger.Debug("sweep candidate evaluated",
				"name", r.Name, "outcome", r.Outcome.String(), "fault", r.Fault.String())
			results[i] = r
			select {
			case done <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-collected

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func evaluate(c Candidate) Result {
	report := bootrom.Evaluate(c.Image)
	return Result{
		Name:        c.Name,
		PairHamming: c.PairHamming,
		Outcome:     report.Outcome,
		Fault:       report.Fault,
		Cycles:      report.State.Cycles,
		Ticks:       report.State.Ticks,
		Voltage:     report.State.Voltage,
		report:      report,
	}
}

// Summary aggregates sweep results.
type Summary struct {
	Total          int   `json:"total"`
	Accepts        int   `json:"accepts"`
	Rejects        int   `json:"rejects"`
	Malformed      int   `json:"malformed"`
	Faulted        int   `json:"faulted"`
	FaultedAccepts int   `json:"faulted_accepts"`
	Window         []int `json:"window"` // pair hamming weights whose first pair stalled
}

// Summarize aggregates results.
func Summarize(results []Result) Summary {
	sum := Summary{Window: []int{}}
	for _, r := range results {
		sum.Total++
		switch r.Outcome {
		case models.OutcomeAccept:
			sum.Accepts++
		case models.OutcomeReject:
			sum.Rejects++
		case models.OutcomeMalformedInput:
			sum.Malformed++
		}
		if r.Fault.Faulted() {
			sum.Faulted++
			if r.Outcome == models.OutcomeAccept {
				sum.FaultedAccepts++
			}
			if r.PairHamming >= 0 && r.Fault.Pair == 0 {
				sum.Window = append(sum.Window, r.PairHamming)
			}
		}
	}
	sort.Ints(sum.Window)
	return sum
}

// WindowBounds returns the smallest and largest hamming weight in the
// window, and false if the window is empty.
func (s Summary) WindowBounds() (lo, hi int, ok bool) {
	if len(s.Window) == 0 {
		return 0, 0, false
	}
	return s.Window[0], s.Window[len(s.Window)-1], true
}
