// Package store persists observations in an append-only log.
package store

import (
	"context"
	"errors"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// ErrUnavailable marks a failure of the persistence backend.
var ErrUnavailable = errors.New("persistence unavailable")

// Log is an append-only observation log.
type Log interface {
	// Append records an observation.
	Append(ctx context.Context, obs logic.Observation) error

	// Latest returns the most recent observation; found is false when the
	// log is empty.
	Latest(ctx context.Context) (obs logic.Observation, found bool, err error)

	// Recent returns up to n observations, newest first.
	Recent(ctx context.Context, n int) ([]logic.Observation, error)

	// All returns every observation, oldest first.
	All(ctx context.Context) ([]logic.Observation, error)

	// Clear deletes every observation.
	Clear(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
