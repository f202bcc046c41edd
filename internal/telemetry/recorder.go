package telemetry

import (
	"context"
	"log/slog"

	"github.com/nvandessel/glitchsim/internal/logging"
	"github.com/nvandessel/glitchsim/internal/soc"
)

// TickLogger logs every sample at logging.LevelTrace.
type TickLogger struct {
	logger *slog.Logger
}

// NewTickLogger returns nil when logger is nil or trace level is disabled,
// so callers can skip recording entirely.
func NewTickLogger(logger *slog.Logger) *TickLogger {
	if logger == nil || !logger.Enabled(context.Background(), logging.LevelTrace) {
		return nil
	}
	return &TickLogger{logger: logger}
}

// Record implements soc.Recorder.
func (l *TickLogger) Record(phase soc.Phase, s soc.Sample) {
	if l == nil {
		return
	}
	l.logger.Log(context.Background(), logging.LevelTrace, "tick",
		"seq", s.Seq,
		"phase", string(phase),
		"hamming", s.Hamming,
		"voltage", s.Voltage,
		"cycles", s.Cycles,
		"stall", s.Stall,
		"glitch", s.Glitch,
		"brownout", s.Brownout)
}

// Tee fans samples out to several recorders, skipping nil ones.
// It returns nil when no recorder remains.
func Tee(recs ...soc.Recorder) soc.Recorder {
	var live multiRecorder
	for _, r := range recs {
		if r == nil {
			continue
		}
		if tl, ok := r.(*TickLogger); ok && tl == nil {
			continue
		}
		live = append(live, r)
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return live
}

type multiRecorder []soc.Recorder

func (m multiRecorder) Record(phase soc.Phase, s soc.Sample) {
	for _, r := range m {
		r.Record(phase, s)
	}
}
