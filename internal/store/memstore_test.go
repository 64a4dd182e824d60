package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/transcriptsync/internal/store"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

func TestMemStore_Save(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("zero ID and time are filled", func(t *testing.T) {
		t.Parallel()
		s := store.NewMemStore(0)
		got, err := s.Save(ctx, store.Run{Name: "interview"})
		if err != nil {
			t.Fatalf("Save: unexpected error: %v", err)
		}
		if got.ID == uuid.Nil {
			t.Fatal("Save: expected generated ID")
		}
		if got.CreatedAt.IsZero() {
			t.Fatal("Save: expected CreatedAt to be set")
		}
	})

	t.Run("explicit ID is preserved and overwritten in place", func(t *testing.T) {
		t.Parallel()
		s := store.NewMemStore(0)
		id := uuid.New()
		if _, err := s.Save(ctx, store.Run{ID: id, Name: "first"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if _, err := s.Save(ctx, store.Run{ID: id, Name: "second"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("Len = %d, want 1", s.Len())
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "second" {
			t.Errorf("Name = %q, want %q", got.Name, "second")
		}
	})

	t.Run("limit evicts oldest", func(t *testing.T) {
		t.Parallel()
		s := store.NewMemStore(2)
		first, _ := s.Save(ctx, store.Run{Name: "a"})
		_, _ = s.Save(ctx, store.Run{Name: "b"})
		_, _ = s.Save(ctx, store.Run{Name: "c"})
		if s.Len() != 2 {
			t.Fatalf("Len = %d, want 2", s.Len())
		}
		if _, err := s.Get(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get evicted: want ErrNotFound, got %v", err)
		}
	})
}

func TestMemStore_GetIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemStore(0)
	saved, err := s.Save(ctx, store.Run{Segments: []types.Segment{{Speaker: "A", Text: "hi"}}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _ := s.Get(ctx, saved.ID)
	got.Segments[0].Text = "changed"

	again, _ := s.Get(ctx, saved.ID)
	if again.Segments[0].Text != "hi" {
		t.Errorf("stored segment mutated through Get result: %q", again.Segments[0].Text)
	}
}

func TestMemStore_GetUnknown(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore(0)
	_, err := s.Get(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemStore(0)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "mid", "new"} {
		_, err := s.Save(ctx, store.Run{
			Name:      name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Output:    "1\n00:00:00,000 --> 00:00:01,000\nhi\n",
			Segments:  []types.Segment{{Speaker: "A"}},
		})
		if err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all", limit: 0, want: []string{"new", "mid", "old"}},
		{name: "limited", limit: 2, want: []string{"new", "mid"}},
		{name: "limit above size", limit: 10, want: []string{"new", "mid", "old"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.List(ctx, tt.limit)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Name != tt.want[i] {
					t.Errorf("[%d] Name = %q, want %q", i, r.Name, tt.want[i])
				}
				if r.Output != "" || r.Segments != nil {
					t.Errorf("[%d] expected summary without output and segments", i)
				}
			}
		})
	}
}

func TestMemStore_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemStore(50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Save(ctx, store.Run{Name: "concurrent"})
			if err != nil {
				t.Errorf("Save: %v", err)
				return
			}
			_, _ = s.Get(ctx, r.ID)
			_, _ = s.List(ctx, 5)
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}
