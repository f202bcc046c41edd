package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"info level", "info"},
		{"debug level", "debug"},
		{"trace level", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			hasInfo := strings.Contains(buf.String(), "info message")
			if hasInfo != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v (buf: %q)", hasInfo, tt.logAtInfo, buf.String())
			}
		})
	}
}

func TestLevelTrace(t *testing.T) {
	// Trace should be below debug (more verbose)
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func TestNewAttemptLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "info")

	// At info level, attempt logger should be nil
	if dl != nil {
		t.Error("expected nil AttemptLogger at info level")
	}

	// Nil logger should still be safe to use
	dl.Log(map[string]any{"event": "test"})

	path := filepath.Join(dir, "attempts.jsonl")
	if _, err := os.Stat(path); err == nil {
		t.Error("attempts.jsonl should not exist at info level")
	}
}

func TestNewAttemptLogger_DebugLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "debug")
	defer dl.Close()

	dl.Log(map[string]any{"event": "evaluate", "cycles": 316.0})

	path := filepath.Join(dir, "attempts.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read attempts.jsonl: %v", err)
	}

	// Parse the JSONL line
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}

	if entry["event"] != "evaluate" {
		t.Errorf("event = %v, want evaluate", entry["event"])
	}
	if entry["cycles"] != 316.0 {
		t.Errorf("cycles = %v, want 316", entry["cycles"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in attempt log entry")
	}
}

func TestNewAttemptLogger_TraceLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "trace")
	defer dl.Close()

	dl.Log(map[string]any{"event": "sweep_candidate"})

	path := filepath.Join(dir, "attempts.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read attempts.jsonl: %v", err)
	}

	if !strings.Contains(string(data), "sweep_candidate") {
		t.Error("expected sweep_candidate in attempts.jsonl")
	}
}

func TestNewAttemptLogger_MultipleWrites(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "debug")
	defer dl.Close()

	dl.Log(map[string]any{"event": "first"})
	dl.Log(map[string]any{"event": "second"})

	path := filepath.Join(dir, "attempts.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read attempts.jsonl: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var first, second map[string]any
	json.Unmarshal([]byte(lines[0]), &first)
	json.Unmarshal([]byte(lines[1]), &second)

	if first["event"] != "first" {
		t.Errorf("first event = %v, want 'first'", first["event"])
	}
	if second["event"] != "second" {
		t.Errorf("second event = %v, want 'second'", second["event"])
	}
}

func TestAttemptLogger_NilSafety(t *testing.T) {
	var dl *AttemptLogger
	dl.Log(map[string]any{"event": "should_not_panic"})
	dl.LogAttempt(models.Attempt{})
	dl.Close()
}

func TestAttemptLogger_DoesNotMutateCallerMap(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "debug")
	defer dl.Close()

	event := map[string]any{"event": "test"}
	dl.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
}

func TestAttemptLogger_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "debug")

	dl.Log(map[string]any{"event": "before_close"})
	dl.Close()

	// Should be a no-op, not panic or error
	dl.Log(map[string]any{"event": "after_close"})
}

func TestNewAttemptLogger_CreatesDir(t *testing.T) {
	base := t.TempDir()
	nestedDir := filepath.Join(base, "sub", "dir")

	dl := NewAttemptLogger(nestedDir, "debug")
	if dl == nil {
		t.Fatal("expected non-nil AttemptLogger when dir needs creation")
	}
	defer dl.Close()

	dl.Log(map[string]any{"event": "dir_create_test"})

	path := filepath.Join(nestedDir, "attempts.jsonl")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("attempts.jsonl should exist after dir creation: %v", err)
	}
}

func TestAttemptLogger_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	dl := NewAttemptLogger(dir, "debug")
	defer dl.Close()

	dl.Log(map[string]any{"event": "perm_test"})

	path := filepath.Join(dir, "attempts.jsonl")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat attempts.jsonl: %v", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestAttemptLogger_LogAttempt(t *testing.T) {
	dir := t.TempDir()
	al := NewAttemptLogger(dir, "debug")
	defer al.Close()

	al.LogAttempt(models.Attempt{
		ID:        "a-1",
		Source:    constants.SourceSweep,
		InputLen:  3325,
		Outcome:   models.OutcomeAccept,
		Fault:     models.FaultFaultedEarly,
		FaultPair: 0,
		Ticks:     258,
	})

	data, err := os.ReadFile(filepath.Join(dir, AttemptsFile))
	if err != nil {
		t.Fatalf("failed to read attempts.jsonl: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}

	checks := map[string]any{
		"event":   "attempt",
		"id":      "a-1",
		"source":  "sweep",
		"outcome": "accept",
		"fault":   "faulted-early",
		"ticks":   258.0,
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"info", "DEBUG", "trace"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false, want true", lvl)
		}
	}
	for _, lvl := range []string{"", "warn", "verbose"} {
		if ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = true, want false", lvl)
		}
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "tick")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace record not labelled TRACE: %q", buf.String())
	}
}
