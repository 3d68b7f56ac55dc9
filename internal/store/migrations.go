package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate creates the schema. Statements are idempotent so Migrate can run
// on every startup.
func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			workload         TEXT NOT NULL,
			policy           TEXT NOT NULL DEFAULT '',
			started_at       TEXT NOT NULL,
			finished_at      TEXT,
			total_ticks      INTEGER NOT NULL DEFAULT 0,
			idle_ticks       INTEGER NOT NULL DEFAULT 0,
			context_switches INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS trace_events (
			run_id    TEXT NOT NULL REFERENCES runs(id),
			seq       INTEGER NOT NULL,
			tick      INTEGER NOT NULL,
			thread_id INTEGER NOT NULL,
			kind      TEXT NOT NULL,
			queue     INTEGER NOT NULL DEFAULT 0,
			executed  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS thread_stats (
			run_id       TEXT NOT NULL REFERENCES runs(id),
			thread_id    INTEGER NOT NULL,
			name         TEXT NOT NULL,
			priority     INTEGER NOT NULL,
			arrival_tick INTEGER NOT NULL,
			finish_tick  INTEGER NOT NULL,
			ticks_waited INTEGER NOT NULL,
			PRIMARY KEY (run_id, thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trace_events_run_tick ON trace_events(run_id, tick)`,
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
