// Package store persists completed alignment runs so they can be listed and
// fetched again after the request that produced them has finished.
//
// Two implementations exist: [MemStore] keeps runs in process memory and is
// used in tests and when no database is configured; the postgres subpackage
// keeps them in PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/transcriptsync/internal/align"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

// ErrNotFound is returned by [Store.Get] when no run has the requested ID.
var ErrNotFound = errors.New("store: run not found")

// Run is one persisted alignment.
type Run struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartIndex int             `json:"start_index"`
	Stats      align.Stats     `json:"stats"`
	Format     string          `json:"format"`
	Output     string          `json:"output,omitempty"`
	Segments   []types.Segment `json:"segments"`
}

// Summary drops the heavy fields of a run for listings.
func (r Run) Summary() Run {
	r.Output = ""
	r.Segments = nil
	return r
}

// Store is the persistence contract for alignment runs.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists run. A zero ID is replaced with a fresh UUID and a zero
	// CreatedAt with the current time; the stored run is returned.
	Save(ctx context.Context, run Run) (Run, error)

	// Get returns the run with the given ID or [ErrNotFound].
	Get(ctx context.Context, id uuid.UUID) (Run, error)

	// List returns up to limit run summaries, newest first. A non-positive
	// limit returns every run.
	List(ctx context.Context, limit int) ([]Run, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases held resources.
	Close()
}

// Prepare fills the ID and CreatedAt defaults of run.
func Prepare(run Run) (Run, error) {
	if run.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return Run{}, err
		}
		run.ID = id
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return run, nil
}
