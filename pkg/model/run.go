// Package model defines the persisted entities of the simulator: runs,
// their trace events, and per-thread statistics.
package model

import (
	"fmt"
	"time"
)

// Run is one recorded simulation run.
type Run struct {
	ID         string     `json:"id"`
	Workload   string     `json:"workload"`
	Policy     string     `json:"policy"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	TotalTicks      int `json:"total_ticks"`
	IdleTicks       int `json:"idle_ticks"`
	ContextSwitches int `json:"context_switches"`
}

// Finished reports whether the run completed.
func (r *Run) Finished() bool {
	return r.FinishedAt != nil
}

// EventKind discriminates persisted trace events.
type EventKind string

const (
	EventInserted EventKind = "inserted"
	EventRemoved  EventKind = "removed"
	EventSelected EventKind = "selected"
	EventReplaced EventKind = "replaced"
)

// TraceEvent is one persisted scheduler trace event. Queue is meaningful
// for inserted/removed events, Executed for replaced events.
type TraceEvent struct {
	RunID    string    `json:"run_id"`
	Seq      int       `json:"seq"`
	Tick     int       `json:"tick"`
	ThreadID int       `json:"thread_id"`
	Kind     EventKind `json:"kind"`
	Queue    int       `json:"queue,omitempty"`
	Executed int       `json:"executed,omitempty"`
}

// Line renders the event in the scheduler's trace-line format. The formats
// are a compatibility contract shared with the live console/file sinks.
func (e *TraceEvent) Line() string {
	switch e.Kind {
	case EventInserted:
		return fmt.Sprintf("Tick %d: Thread %d is inserting into queue L%d", e.Tick, e.ThreadID, e.Queue)
	case EventRemoved:
		return fmt.Sprintf("Tick %d: Thread %d is removed from queue L%d", e.Tick, e.ThreadID, e.Queue)
	case EventSelected:
		return fmt.Sprintf("Tick %d: Thread %d is now selected for execution", e.Tick, e.ThreadID)
	case EventReplaced:
		return fmt.Sprintf("Tick %d: Thread %d is replaced, and it has executed %d", e.Tick, e.ThreadID, e.Executed)
	default:
		return fmt.Sprintf("Tick %d: Thread %d: unknown event %q", e.Tick, e.ThreadID, e.Kind)
	}
}

// ThreadStat is the per-thread outcome of a finished run.
type ThreadStat struct {
	RunID       string `json:"run_id"`
	ThreadID    int    `json:"thread_id"`
	Name        string `json:"name"`
	Priority    int    `json:"priority"`
	ArrivalTick int    `json:"arrival_tick"`
	FinishTick  int    `json:"finish_tick"`
	TicksWaited int    `json:"ticks_waited"`
}
