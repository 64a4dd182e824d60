package store_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/transcriptsync/internal/resilience"
	"github.com/MrWong99/transcriptsync/internal/store"
)

var errDown = errors.New("connection refused")

// flakyStore is a MemStore that fails every call while down is set.
type flakyStore struct {
	*store.MemStore
	down  atomic.Bool
	calls atomic.Int32
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemStore: store.NewMemStore(0)}
}

func (f *flakyStore) Save(ctx context.Context, run store.Run) (store.Run, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return store.Run{}, errDown
	}
	return f.MemStore.Save(ctx, run)
}

func (f *flakyStore) Get(ctx context.Context, id uuid.UUID) (store.Run, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return store.Run{}, errDown
	}
	return f.MemStore.Get(ctx, id)
}

func (f *flakyStore) List(ctx context.Context, limit int) ([]store.Run, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, errDown
	}
	return f.MemStore.List(ctx, limit)
}

func (f *flakyStore) Ping(context.Context) error {
	if f.down.Load() {
		return errDown
	}
	return nil
}

func TestFallbackStore_PrimaryHealthy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	primary, secondary := newFlakyStore(), store.NewMemStore(0)
	fs := store.NewFallbackStore(primary, secondary, resilience.CircuitBreakerConfig{})

	run, err := fs.Save(ctx, store.Run{Name: "a"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if primary.Len() != 1 || secondary.Len() != 0 {
		t.Fatalf("primary=%d secondary=%d, want 1/0", primary.Len(), secondary.Len())
	}
	got, err := fs.Get(ctx, run.ID)
	if err != nil || got.Name != "a" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := fs.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestFallbackStore_PrimaryDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	primary, secondary := newFlakyStore(), store.NewMemStore(0)
	fs := store.NewFallbackStore(primary, secondary, resilience.CircuitBreakerConfig{
		MaxFailures: 2,
		Cooldown:    time.Hour,
	})

	before, err := fs.Save(ctx, store.Run{Name: "before"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	primary.down.Store(true)

	var saved []store.Run
	for _, name := range []string{"x", "y", "z"} {
		run, err := fs.Save(ctx, store.Run{Name: name})
		if err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		saved = append(saved, run)
	}
	if secondary.Len() != 3 {
		t.Fatalf("secondary.Len = %d, want 3", secondary.Len())
	}
	if fs.Breaker().State() != resilience.StateOpen {
		t.Errorf("breaker = %v, want open", fs.Breaker().State())
	}

	calls := primary.calls.Load()
	got, err := fs.Get(ctx, saved[2].ID)
	if err != nil || got.Name != "z" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if primary.calls.Load() != calls {
		t.Error("open breaker still forwarded calls to primary")
	}

	if _, err := fs.Get(ctx, before.ID); err == nil {
		t.Error("Get of a primary-only run succeeded while primary is down")
	} else if errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get = %v, want an availability error", err)
	}

	runs, err := fs.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("List returned %d runs, want 3", len(runs))
	}
	if err := fs.Ping(ctx); !errors.Is(err, errDown) {
		t.Errorf("Ping = %v, want errDown", err)
	}
}

func TestFallbackStore_NotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := store.NewFallbackStore(newFlakyStore(), store.NewMemStore(0), resilience.CircuitBreakerConfig{MaxFailures: 1})

	for range 3 {
		if _, err := fs.Get(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Get = %v, want ErrNotFound", err)
		}
	}
	if fs.Breaker().State() != resilience.StateClosed {
		t.Errorf("breaker = %v, want closed", fs.Breaker().State())
	}
}

func TestFallbackStore_ListMergesBoth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	primary, secondary := newFlakyStore(), store.NewMemStore(0)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"p1", "p2"} {
		if _, err := primary.Save(ctx, store.Run{Name: name, CreatedAt: base.Add(time.Duration(2*i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := secondary.Save(ctx, store.Run{Name: "s1", CreatedAt: base.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}

	fs := store.NewFallbackStore(primary, secondary, resilience.CircuitBreakerConfig{})
	runs, err := fs.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, r := range runs {
		names = append(names, r.Name)
	}
	if len(names) != 2 || names[0] != "p2" || names[1] != "s1" {
		t.Errorf("List names = %v, want [p2 s1]", names)
	}
}
