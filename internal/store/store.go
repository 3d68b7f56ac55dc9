// Package store persists simulation runs and their trace events.
package store

import (
	"context"

	"github.com/me/tinykern/pkg/model"
)

// Store defines the persistence layer for simulator entities.
type Store interface {
	// Run lifecycle
	CreateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context) ([]*model.Run, error)
	FinishRun(ctx context.Context, run *model.Run) error

	// Trace events
	AppendEvent(ctx context.Context, ev *model.TraceEvent) error
	ListEventsByRun(ctx context.Context, runID string) ([]*model.TraceEvent, error)

	// Per-thread outcomes
	CreateThreadStat(ctx context.Context, st *model.ThreadStat) error
	ListThreadStats(ctx context.Context, runID string) ([]*model.ThreadStat, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
