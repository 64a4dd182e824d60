// Package postgres provides a PostgreSQL-backed [store.Store] for alignment
// runs.
//
// A run is one row in alignment_runs; its final segments live in
// alignment_segments keyed by (run_id, position). Both tables share a single
// [pgxpool.Pool]. [Migrate] creates them on startup.
//
// Usage:
//
//	s, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer s.Close()
//
//	run, _ = s.Save(ctx, run)
//	got, _ := s.Get(ctx, run.ID)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlRuns = `
CREATE TABLE IF NOT EXISTS alignment_runs (
    id            UUID         PRIMARY KEY,
    name          TEXT         NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    start_index   INTEGER      NOT NULL DEFAULT 0,
    turns         INTEGER      NOT NULL DEFAULT 0,
    front_matter  INTEGER      NOT NULL DEFAULT 0,
    anchored      INTEGER      NOT NULL DEFAULT 0,
    interpolated  INTEGER      NOT NULL DEFAULT 0,
    format        TEXT         NOT NULL DEFAULT '',
    output        TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_alignment_runs_created_at
    ON alignment_runs (created_at DESC);
`

const ddlSegments = `
CREATE TABLE IF NOT EXISTS alignment_segments (
    run_id      UUID              NOT NULL REFERENCES alignment_runs (id) ON DELETE CASCADE,
    position    INTEGER           NOT NULL,
    speaker     TEXT              NOT NULL DEFAULT '',
    text        TEXT              NOT NULL,
    start_ms    BIGINT            NOT NULL,
    end_ms      BIGINT            NOT NULL,
    source      TEXT              NOT NULL,
    confidence  DOUBLE PRECISION  NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, position)
);
`

// Migrate creates the run tables if they do not exist. It is idempotent and
// safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlRuns, ddlSegments} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
