package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/nvandessel/glitchsim/internal/models"
)

// ExportJSONL writes up to limit attempts (all when limit <= 0), newest
// first, one JSON object per line.
func ExportJSONL(ctx context.Context, s AttemptStore, w io.Writer, limit int) (int, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	attempts, err := s.ListAttempts(ctx, ListOptions{Limit: limit})
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	for i, a := range attempts {
		if err := enc.Encode(a); err != nil {
			return i, fmt.Errorf("failed to encode attempt %s: %w", a.ID, err)
		}
	}
	return len(attempts), nil
}

// ImportJSONL records every attempt read from r. Lines that fail to parse
// are logged and skipped. Returns the number of attempts imported.
func ImportJSONL(ctx context.Context, s AttemptStore, r io.Reader, logger *slog.Logger) (int, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum, imported := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var a models.Attempt
		if err := json.Unmarshal(line, &a); err != nil {
			if logger != nil {
				logger.Warn("skipping unparseable attempt", "line", lineNum, "error", err)
			}
			continue
		}

		if _, err := s.RecordAttempt(ctx, a); err != nil {
			return imported, fmt.Errorf("failed to import line %d: %w", lineNum, err)
		}
		imported++
	}

	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("scanner error: %w", err)
	}
	return imported, nil
}
