package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const attemptColumns = `id, timestamp, source, input_hash, input_len, outcome, fault, fault_pair,
	cycles, voltage, temperature, status_reg, glitch_reg, ticks`

// SQLiteAttemptStore implements AttemptStore on a SQLite database.
type SQLiteAttemptStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteAttemptStore opens (creating if needed) the database at dbPath.
func NewSQLiteAttemptStore(dbPath string) (*SQLiteAttemptStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteAttemptStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteAttemptStore) Path() string {
	return s.dbPath
}

// RecordAttempt inserts a, replacing any attempt with the same ID.
func (s *SQLiteAttemptStore) RecordAttempt(ctx context.Context, a models.Attempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a = normalize(a)
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp.UTC().Format(timeLayout), a.Source.String(), a.InputHash, a.InputLen,
		int(a.Outcome.Code()), string(a.Fault), a.FaultPair,
		int64(a.Cycles), float64(a.Voltage), float64(a.Temp),
		int64(a.StatusReg), int64(a.GlitchReg), a.Ticks)
	if err != nil {
		return "", fmt.Errorf("failed to insert attempt: %w", err)
	}
	return a.ID, nil
}

// GetAttempt retrieves an attempt by ID.
func (s *SQLiteAttemptStore) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttempts returns matching attempts, newest first.
func (s *SQLiteAttemptStore) ListAttempts(ctx context.Context, opts ListOptions) ([]models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if opts.Outcome != 0 {
		where = append(where, "outcome = ?")
		args = append(args, int(opts.Outcome.Code()))
	}
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source.String())
	}

	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, opts.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return out, nil
}

// Stats aggregates all recorded attempts.
func (s *SQLiteAttemptStore) Stats(ctx context.Context) (models.AttemptStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.AttemptStats{ByOutcome: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return stats, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		stats.ByOutcome[models.Outcome(code).String()] += n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
		FROM attempts WHERE fault = ?`,
		int(models.OutcomeAccept.Code()), string(models.FaultFaultedEarly),
	).Scan(&stats.Faulted, &stats.FaultedAccepts)
	if err != nil {
		return stats, fmt.Errorf("failed to count faults: %w", err)
	}

	return stats, nil
}

// Close closes the database.
func (s *SQLiteAttemptStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (models.Attempt, error) {
	var (
		a                  models.Attempt
		ts, source, fault  string
		outcome            int
		cycles, status, gl int64
		voltage, temp      float64
	)
	err := row.Scan(&a.ID, &ts, &source, &a.InputHash, &a.InputLen, &outcome, &fault, &a.FaultPair,
		&cycles, &voltage, &temp, &status, &gl, &a.Ticks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan attempt: %w", err)
	}

	a.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return a, fmt.Errorf("invalid timestamp %q for attempt %s: %w", ts, a.ID, err)
	}
	a.Source = constants.Source(source)
	a.Outcome = models.Outcome(outcome)
	a.Fault = models.FaultStatus(fault)
	a.Cycles = uint64(cycles)
	a.Voltage = float32(voltage)
	a.Temp = float32(temp)
	a.StatusReg = uint32(status)
	a.GlitchReg = uint32(gl)
	return a, nil
}

// normalize assigns an ID and timestamp when missing.
func normalize(a models.Attempt) models.Attempt {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return a
}
