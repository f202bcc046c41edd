package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func readAuditEntries(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parsing audit entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning audit log: %v", err)
	}
	return entries
}

func TestAuditLogger_NilSafety(t *testing.T) {
	t.Run("nil logger Log is no-op", func(t *testing.T) {
		var logger *AuditLogger
		logger.Log(AuditEntry{Tool: "test"})
	})

	t.Run("nil logger Close is no-op", func(t *testing.T) {
		var logger *AuditLogger
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on nil logger returned error: %v", err)
		}
	})
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	now := time.Now()
	logger.Log(AuditEntry{
		Timestamp:  now,
		Tool:       "glitch_evaluate",
		DurationMs: 42,
		Status:     "success",
		Params:     map[string]string{"trace": "true"},
	})
	logger.Close()

	entries := readAuditEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Tool != "glitch_evaluate" {
		t.Errorf("tool = %q, want glitch_evaluate", entry.Tool)
	}
	if entry.DurationMs != 42 {
		t.Errorf("duration_ms = %d, want 42", entry.DurationMs)
	}
	if entry.Params["trace"] != "true" {
		t.Errorf("params[trace] = %q, want true", entry.Params["trace"])
	}
}

func TestAuditLogger_AppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		logger := NewAuditLogger(dir)
		logger.Log(AuditEntry{Tool: "glitch_history", Status: "success"})
		logger.Close()
	}

	if entries := readAuditEntries(t, dir); len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestAuditLogger_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}

	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	logger.Log(AuditEntry{Tool: "glitch_sweep"})
	logger.Close()

	info, err := os.Stat(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("stat audit log: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)

	const goroutines = 10
	const perGoroutine = 20

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				logger.Log(AuditEntry{Tool: "glitch_evaluate", Status: "success"})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if entries := readAuditEntries(t, dir); len(entries) != goroutines*perGoroutine {
		t.Errorf("got %d entries, want %d", len(entries), goroutines*perGoroutine)
	}
}

func TestAuditLogger_NonFatalOnBadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// A regular file where the directory should be.
	if logger := NewAuditLogger(blocker); logger != nil {
		logger.Close()
		t.Error("expected nil logger for unusable directory")
	}
}

func TestSanitizeToolParams(t *testing.T) {
	t.Run("safe values are included", func(t *testing.T) {
		result := sanitizeToolParams("glitch_history", map[string]interface{}{
			"limit":   5,
			"outcome": "accept",
			"source":  "mcp",
		})
		if result["limit"] != "5" {
			t.Errorf("limit = %q, want 5", result["limit"])
		}
		if result["outcome"] != "accept" {
			t.Errorf("outcome = %q, want accept", result["outcome"])
		}
		if result["source"] != "mcp" {
			t.Errorf("source = %q, want mcp", result["source"])
		}
		if result["_param_count"] != "3" {
			t.Errorf("_param_count = %q, want 3", result["_param_count"])
		}
	})

	t.Run("image content is redacted", func(t *testing.T) {
		result := sanitizeToolParams("glitch_evaluate", map[string]interface{}{
			"image_hex": "deadbeef",
			"trace":     true,
		})
		if result["image_hex"] != "(set)" {
			t.Errorf("image_hex = %q, want (set)", result["image_hex"])
		}
		if result["image_hex_len"] != "8" {
			t.Errorf("image_hex_len = %q, want 8", result["image_hex_len"])
		}
		if result["trace"] != "true" {
			t.Errorf("trace = %q, want true", result["trace"])
		}
	})

	t.Run("unknown params are excluded", func(t *testing.T) {
		result := sanitizeToolParams("test", map[string]interface{}{
			"malicious_param": "should not appear",
		})
		if _, ok := result["malicious_param"]; ok {
			t.Error("unknown param should not be included")
		}
		if result["_param_count"] != "1" {
			t.Errorf("_param_count = %q, want 1", result["_param_count"])
		}
	})

	t.Run("nil params returns nil", func(t *testing.T) {
		if result := sanitizeToolParams("test", nil); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}

func TestAuditTool_Integration(t *testing.T) {
	server, auditDir := setupTestServer(t)

	start := time.Now()
	time.Sleep(1 * time.Millisecond)
	server.auditTool("glitch_test", start, nil, map[string]string{"limit": "3"})
	server.auditTool("glitch_test", start, errors.New("boom"), nil)
	server.Close()

	entries := readAuditEntries(t, auditDir)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Status != "success" || entries[0].DurationMs < 1 {
		t.Errorf("entry 0 = %+v, want success with duration >= 1", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Errorf("entry 1 = %+v, want error boom", entries[1])
	}
}
