// Package logging provides leveled logging and attempt tracing for glitchsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An AttemptLogger for structured JSONL attempt events (~/.glitchsim/attempts.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/glitchsim/internal/models"
)

// LevelTrace is a custom slog level below Debug.
// At this level every simulated tick is logged.
const LevelTrace = slog.LevelDebug - 4

// AttemptsFile is the name of the JSONL attempt log inside the data directory.
const AttemptsFile = "attempts.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "info", "debug", "trace":
		return true
	}
	return false
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// AttemptLogger appends boot attempt events to a JSONL file.
// It is safe for concurrent use, and a nil AttemptLogger is a no-op.
type AttemptLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAttemptLogger creates an attempt logger writing to dir/attempts.jsonl.
// At "info" level it returns nil and no file is created.
// Returns nil if the file cannot be opened.
func NewAttemptLogger(dir string, level string) *AttemptLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, AttemptsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &AttemptLogger{file: f}
}

// Log writes an event as a single JSONL line with a "time" field added.
// The caller's map is not mutated.
func (al *AttemptLogger) Log(event map[string]any) {
	if al == nil || al.file == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file == nil {
		return
	}
	_, _ = al.file.Write(data)
}

// LogAttempt records a finished evaluation.
func (al *AttemptLogger) LogAttempt(a models.Attempt) {
	if al == nil {
		return
	}
	al.Log(map[string]any{
		"event":      "attempt",
		"id":         a.ID,
		"source":     a.Source.String(),
		"input_hash": a.InputHash,
		"input_len":  a.InputLen,
		"outcome":    a.Outcome.String(),
		"fault":      string(a.Fault),
		"fault_pair": a.FaultPair,
		"cycles":     a.Cycles,
		"voltage":    a.Voltage,
		"ticks":      a.Ticks,
	})
}

// Close closes the underlying file.
func (al *AttemptLogger) Close() {
	if al == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	if al.file != nil {
		al.file.Close()
		al.file = nil
	}
}
