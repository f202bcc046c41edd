// Package store persists boot attempt history.
package store

import (
	"context"
	"errors"

	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/models"
)

// ErrNotFound is returned when an attempt ID does not exist.
var ErrNotFound = errors.New("attempt not found")

// DefaultListLimit caps ListAttempts when no limit is given.
const DefaultListLimit = 20

// ListOptions filters ListAttempts. Zero values mean "any".
type ListOptions struct {
	Limit   int
	Outcome models.Outcome
	Source  constants.Source
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// AttemptStore records and queries boot attempts.
type AttemptStore interface {
	// RecordAttempt stores a. An empty ID is replaced by a new UUID and a
	// zero Timestamp by the current time. Returns the stored ID.
	RecordAttempt(ctx context.Context, a models.Attempt) (string, error)

	// GetAttempt returns ErrNotFound if id is unknown.
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)

	// ListAttempts returns matching attempts, newest first.
	ListAttempts(ctx context.Context, opts ListOptions) ([]models.Attempt, error)

	Stats(ctx context.Context) (models.AttemptStats, error)
	Close() error
}
