package store

import (
	"context"
	"fmt"

	"github.com/me/tinykern/internal/trace"
	"github.com/me/tinykern/pkg/model"
)

// SaveTrace persists a recorded trace under the given run. Events are
// captured in memory during the simulation (the scheduler emits them with
// interrupts off, where SQL round trips have no business) and written out
// afterwards in one pass.
func SaveTrace(ctx context.Context, s Store, runID string, events []trace.Event) error {
	for i, ev := range events {
		rec := &model.TraceEvent{
			RunID:    runID,
			Seq:      i,
			Tick:     ev.Tick,
			ThreadID: ev.ThreadID,
			Kind:     model.EventKind(ev.Kind),
			Queue:    ev.Queue,
			Executed: ev.Executed,
		}
		if err := s.AppendEvent(ctx, rec); err != nil {
			return fmt.Errorf("save trace event %d: %w", i, err)
		}
	}
	return nil
}
