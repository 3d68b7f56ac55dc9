package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/tinykern/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a Store. Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// SQLite serializes writers anyway; a single connection also keeps the
	// per-connection pragmas (and in-memory databases) coherent.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workload, policy, started_at, total_ticks, idle_ticks, context_switches)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Workload, run.Policy, run.StartedAt.Format(time.RFC3339Nano),
		run.TotalTicks, run.IdleTicks, run.ContextSwitches)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workload, policy, started_at, finished_at, total_ticks, idle_ticks, context_switches
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*model.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workload, policy, started_at, finished_at, total_ticks, idle_ticks, context_switches
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FinishRun records the final statistics and the finish timestamp.
func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID)

	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, total_ticks = ?, idle_ticks = ?, context_switches = ?
		WHERE id = ?`,
		finished, run.TotalTicks, run.IdleTicks, run.ContextSwitches, run.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return nil
}

// --- Trace events ---

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *model.TraceEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trace_events (run_id, seq, tick, thread_id, kind, queue, executed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.Seq, ev.Tick, ev.ThreadID, string(ev.Kind), ev.Queue, ev.Executed)
	if err != nil {
		return fmt.Errorf("append event run=%s seq=%d: %w", ev.RunID, ev.Seq, err)
	}
	return nil
}

func (s *SQLiteStore) ListEventsByRun(ctx context.Context, runID string) ([]*model.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, tick, thread_id, kind, queue, executed
		FROM trace_events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []*model.TraceEvent
	for rows.Next() {
		ev := &model.TraceEvent{}
		var kind string
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.Tick, &ev.ThreadID, &kind, &ev.Queue, &ev.Executed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = model.EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// --- Thread stats ---

func (s *SQLiteStore) CreateThreadStat(ctx context.Context, st *model.ThreadStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thread_stats (run_id, thread_id, name, priority, arrival_tick, finish_tick, ticks_waited)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.RunID, st.ThreadID, st.Name, st.Priority, st.ArrivalTick, st.FinishTick, st.TicksWaited)
	if err != nil {
		return fmt.Errorf("insert thread stat run=%s thread=%d: %w", st.RunID, st.ThreadID, err)
	}
	return nil
}

func (s *SQLiteStore) ListThreadStats(ctx context.Context, runID string) ([]*model.ThreadStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, thread_id, name, priority, arrival_tick, finish_tick, ticks_waited
		FROM thread_stats WHERE run_id = ? ORDER BY thread_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list thread stats for run %s: %w", runID, err)
	}
	defer rows.Close()

	var stats []*model.ThreadStat
	for rows.Next() {
		st := &model.ThreadStat{}
		if err := rows.Scan(&st.RunID, &st.ThreadID, &st.Name, &st.Priority, &st.ArrivalTick, &st.FinishTick, &st.TicksWaited); err != nil {
			return nil, fmt.Errorf("scan thread stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	run := &model.Run{}
	var started string
	var finished sql.NullString

	if err := sc.Scan(&run.ID, &run.Workload, &run.Policy, &started, &finished,
		&run.TotalTicks, &run.IdleTicks, &run.ContextSwitches); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t

	if finished.Valid {
		ft, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &ft
	}
	return run, nil
}
