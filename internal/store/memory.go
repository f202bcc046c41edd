package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nvandessel/glitchsim/internal/models"
)

// InMemoryAttemptStore implements AttemptStore for testing and for runs
// with recording disabled.
type InMemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]models.Attempt
	order    map[string]int
	next     int
}

// NewInMemoryAttemptStore creates an empty in-memory store.
func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{
		attempts: make(map[string]models.Attempt),
		order:    make(map[string]int),
	}
}

// RecordAttempt stores a.
func (s *InMemoryAttemptStore) RecordAttempt(ctx context.Context, a models.Attempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a = normalize(a)
	a.Timestamp = a.Timestamp.UTC()
	s.attempts[a.ID] = a
	s.next++
	s.order[a.ID] = s.next
	return a.ID, nil
}

// GetAttempt retrieves an attempt by ID.
func (s *InMemoryAttemptStore) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &a, nil
}

// ListAttempts returns matching attempts, newest first.
func (s *InMemoryAttemptStore) ListAttempts(ctx context.Context, opts ListOptions) ([]models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Attempt
	for _, a := range s.attempts {
		if opts.Outcome != 0 && a.Outcome != opts.Outcome {
			continue
		}
		if opts.Source != "" && a.Source != opts.Source {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})

	if len(out) > opts.limit() {
		out = out[:opts.limit()]
	}
	return out, nil
}

// Stats aggregates all recorded attempts.
func (s *InMemoryAttemptStore) Stats(ctx context.Context) (models.AttemptStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.AttemptStats{ByOutcome: make(map[string]int)}
	for _, a := range s.attempts {
		stats.Total++
		stats.ByOutcome[a.Outcome.String()]++
		if a.Fault == models.FaultFaultedEarly {
			stats.Faulted++
			if a.Outcome == models.OutcomeAccept {
				stats.FaultedAccepts++
			}
		}
	}
	return stats, nil
}

// Close is a no-op.
func (s *InMemoryAttemptStore) Close() error {
	return nil
}
