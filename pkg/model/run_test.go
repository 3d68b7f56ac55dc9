package model

import (
	"testing"
	"time"
)

func TestRunFinished(t *testing.T) {
	r := &Run{ID: "run_1"}
	if r.Finished() {
		t.Error("fresh run reports finished")
	}
	now := time.Now()
	r.FinishedAt = &now
	if !r.Finished() {
		t.Error("run with a finish time reports unfinished")
	}
}

func TestTraceEventLine(t *testing.T) {
	tests := []struct {
		ev   TraceEvent
		want string
	}{
		{
			TraceEvent{Kind: EventInserted, Tick: 100, ThreadID: 2, Queue: 3},
			"Tick 100: Thread 2 is inserting into queue L3",
		},
		{
			TraceEvent{Kind: EventRemoved, Tick: 200, ThreadID: 2, Queue: 3},
			"Tick 200: Thread 2 is removed from queue L3",
		},
		{
			TraceEvent{Kind: EventSelected, Tick: 200, ThreadID: 2},
			"Tick 200: Thread 2 is now selected for execution",
		},
		{
			TraceEvent{Kind: EventReplaced, Tick: 200, ThreadID: 1, Executed: 150},
			"Tick 200: Thread 1 is replaced, and it has executed 150",
		},
	}
	for _, tt := range tests {
		if got := tt.ev.Line(); got != tt.want {
			t.Errorf("Line() = %q, want %q", got, tt.want)
		}
	}
}
