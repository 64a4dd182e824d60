package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/transcriptsync/internal/store"
	"github.com/MrWong99/transcriptsync/pkg/types"
)

var _ store.Store = (*Store)(nil)

// Store keeps alignment runs in PostgreSQL. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all pool connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Save implements [store.Store]. The run row and its segments are written in
// one transaction; saving an existing ID replaces the previous segments.
func (s *Store) Save(ctx context.Context, run store.Run) (store.Run, error) {
	run, err := store.Prepare(run)
	if err != nil {
		return store.Run{}, fmt.Errorf("postgres store: save: %w", err)
	}

	const upsertRun = `
		INSERT INTO alignment_runs
		    (id, name, created_at, start_index, turns, front_matter, anchored, interpolated, format, output)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		    name         = EXCLUDED.name,
		    start_index  = EXCLUDED.start_index,
		    turns        = EXCLUDED.turns,
		    front_matter = EXCLUDED.front_matter,
		    anchored     = EXCLUDED.anchored,
		    interpolated = EXCLUDED.interpolated,
		    format       = EXCLUDED.format,
		    output       = EXCLUDED.output`

	const insertSegment = `
		INSERT INTO alignment_segments
		    (run_id, position, speaker, text, start_ms, end_ms, source, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertRun,
			run.ID.String(),
			run.Name,
			run.CreatedAt,
			run.StartIndex,
			run.Stats.Turns,
			run.Stats.FrontMatter,
			run.Stats.Anchored,
			run.Stats.Interpolated,
			run.Format,
			run.Output,
		); err != nil {
			return fmt.Errorf("upsert run: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM alignment_segments WHERE run_id = $1`, run.ID.String()); err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}

		batch := &pgx.Batch{}
		for i, seg := range run.Segments {
			batch.Queue(insertSegment,
				run.ID.String(), i, seg.Speaker, seg.Text,
				seg.StartMs, seg.EndMs, string(seg.Source), seg.Confidence,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert segments: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Run{}, fmt.Errorf("postgres store: save: %w", err)
	}
	return run, nil
}

// Get implements [store.Store].
func (s *Store) Get(ctx context.Context, id uuid.UUID) (store.Run, error) {
	const q = `
		SELECT id::text, name, created_at, start_index, turns, front_matter, anchored, interpolated, format, output
		FROM   alignment_runs
		WHERE  id = $1`

	run, err := scanRun(s.pool.QueryRow(ctx, q, id.String()), true)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Run{}, store.ErrNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("postgres store: get: %w", err)
	}

	segs, err := s.segments(ctx, id)
	if err != nil {
		return store.Run{}, fmt.Errorf("postgres store: get: %w", err)
	}
	run.Segments = segs
	return run, nil
}

// List implements [store.Store].
func (s *Store) List(ctx context.Context, limit int) ([]store.Run, error) {
	q := `
		SELECT id::text, name, created_at, start_index, turns, front_matter, anchored, interpolated, format
		FROM   alignment_runs
		ORDER  BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Run, error) {
		return scanRun(row, false)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	return runs, nil
}

func (s *Store) segments(ctx context.Context, id uuid.UUID) ([]types.Segment, error) {
	const q = `
		SELECT speaker, text, start_ms, end_ms, source, confidence
		FROM   alignment_segments
		WHERE  run_id = $1
		ORDER  BY position`

	rows, err := s.pool.Query(ctx, q, id.String())
	if err != nil {
		return nil, fmt.Errorf("segments: %w", err)
	}
	segs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Segment, error) {
		var (
			seg    types.Segment
			source string
		)
		if err := row.Scan(&seg.Speaker, &seg.Text, &seg.StartMs, &seg.EndMs, &source, &seg.Confidence); err != nil {
			return types.Segment{}, err
		}
		seg.Source = types.Source(source)
		return seg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("segments: %w", err)
	}
	return segs, nil
}

// scanRun reads one alignment_runs row. withOutput selects whether the
// trailing output column is part of the projection.
func scanRun(row pgx.Row, withOutput bool) (store.Run, error) {
	var (
		run store.Run
		id  string
	)
	dest := []any{
		&id,
		&run.Name,
		&run.CreatedAt,
		&run.StartIndex,
		&run.Stats.Turns,
		&run.Stats.FrontMatter,
		&run.Stats.Anchored,
		&run.Stats.Interpolated,
		&run.Format,
	}
	if withOutput {
		dest = append(dest, &run.Output)
	}
	if err := row.Scan(dest...); err != nil {
		return store.Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return store.Run{}, fmt.Errorf("parse run id %q: %w", id, err)
	}
	run.ID = parsed
	run.CreatedAt = run.CreatedAt.UTC()
	return run, nil
}
