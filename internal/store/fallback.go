package store

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/MrWong99/transcriptsync/internal/resilience"
)

// FallbackStore writes to a primary store and switches to a secondary one
// while the primary keeps failing. A circuit breaker guards the primary so an
// unreachable database costs one fast rejection per call instead of a
// connection timeout.
//
// Runs saved to the secondary stay there; Get and List consult both stores.
type FallbackStore struct {
	primary   Store
	secondary Store
	cb        *resilience.CircuitBreaker
}

// NewFallbackStore wraps primary with secondary as its fallback. Zero-value
// breaker config fields get the [resilience.NewCircuitBreaker] defaults; the
// IsFailure hook is always set so that [ErrNotFound] does not trip the
// breaker.
func NewFallbackStore(primary, secondary Store, cfg resilience.CircuitBreakerConfig) *FallbackStore {
	if cfg.Name == "" {
		cfg.Name = "store"
	}
	cfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
	}
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		cb:        resilience.NewCircuitBreaker(cfg),
	}
}

// Breaker exposes the breaker guarding the primary store.
func (f *FallbackStore) Breaker() *resilience.CircuitBreaker { return f.cb }

// Save implements [Store].
func (f *FallbackStore) Save(ctx context.Context, run Run) (Run, error) {
	run, err := Prepare(run)
	if err != nil {
		return Run{}, err
	}

	var saved Run
	err = f.cb.Execute(func() error {
		var err error
		saved, err = f.primary.Save(ctx, run)
		return err
	})
	if err == nil {
		return saved, nil
	}
	if ctx.Err() != nil {
		return Run{}, err
	}
	slog.Warn("primary store unavailable, saving to fallback", "id", run.ID, "err", err)
	return f.secondary.Save(ctx, run)
}

// Get implements [Store].
func (f *FallbackStore) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	var run Run
	err := f.cb.Execute(func() error {
		var err error
		run, err = f.primary.Get(ctx, id)
		return err
	})
	if err == nil {
		return run, nil
	}
	if ctx.Err() != nil {
		return Run{}, err
	}
	run, serr := f.secondary.Get(ctx, id)
	if serr == nil {
		return run, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Run{}, serr
	}
	return Run{}, err
}

// List implements [Store]. It merges both stores; a failing primary only
// drops its share of the result.
func (f *FallbackStore) List(ctx context.Context, limit int) ([]Run, error) {
	var primary []Run
	perr := f.cb.Execute(func() error {
		var err error
		primary, err = f.primary.List(ctx, limit)
		return err
	})
	secondary, serr := f.secondary.List(ctx, limit)
	if perr != nil && serr != nil {
		return nil, perr
	}
	if perr != nil {
		slog.Warn("primary store unavailable, listing fallback only", "err", perr)
	}

	seen := make(map[uuid.UUID]bool, len(primary)+len(secondary))
	runs := make([]Run, 0, len(primary)+len(secondary))
	for _, r := range append(primary, secondary...) {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		runs = append(runs, r)
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Ping reports the health of the primary store. It bypasses the breaker so a
// recovered database is visible to readiness probes straight away.
func (f *FallbackStore) Ping(ctx context.Context) error {
	return f.primary.Ping(ctx)
}

// Close closes both stores.
func (f *FallbackStore) Close() {
	f.primary.Close()
	f.secondary.Close()
}
