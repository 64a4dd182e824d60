package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory [Store]. When a limit is set, the
// oldest runs are evicted once it is exceeded.
type MemStore struct {
	mu    sync.RWMutex
	limit int
	runs  map[uuid.UUID]Run
	order []uuid.UUID // insertion order, oldest first
}

// NewMemStore returns an empty [MemStore] holding at most limit runs.
// A non-positive limit disables eviction.
func NewMemStore(limit int) *MemStore {
	return &MemStore{
		limit: limit,
		runs:  make(map[uuid.UUID]Run),
	}
}

// Save implements [Store.Save].
func (s *MemStore) Save(_ context.Context, run Run) (Run, error) {
	run, err := Prepare(run)
	if err != nil {
		return Run{}, fmt.Errorf("store: save: %w", err)
	}
	run.Segments = slices.Clone(run.Segments)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run

	for s.limit > 0 && len(s.order) > s.limit {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	return run, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, id uuid.UUID) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	run.Segments = slices.Clone(run.Segments)
	return run, nil
}

// List implements [Store.List].
func (s *MemStore) List(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Summary())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping implements [Store.Ping]. It always succeeds.
func (s *MemStore) Ping(context.Context) error { return nil }

// Close implements [Store.Close]. It is a no-op.
func (s *MemStore) Close() {}

// Len returns the number of runs held.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
