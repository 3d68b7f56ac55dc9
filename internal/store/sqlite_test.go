package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/tinykern/internal/trace"
	"github.com/me/tinykern/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &model.Run{
		ID:        "run_test1",
		Workload:  "basic",
		Policy:    "aging(10/1500)",
		StartedAt: time.Now().UTC(),
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got == nil {
		t.Fatal("run not found after create")
	}
	if got.Workload != "basic" || got.Policy != "aging(10/1500)" {
		t.Errorf("round trip = %+v", got)
	}
	if got.Finished() {
		t.Error("fresh run reports finished")
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.TotalTicks = 10
	run.IdleTicks = 2
	run.ContextSwitches = 4
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	got, err = s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get finished run: %v", err)
	}
	if !got.Finished() {
		t.Error("finished run reports unfinished")
	}
	if got.TotalTicks != 10 || got.IdleTicks != 2 || got.ContextSwitches != 4 {
		t.Errorf("final stats = %+v, want 10/2/4", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun(context.Background(), "run_missing")
	if err != nil {
		t.Fatalf("get missing run: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"run_a", "run_b"} {
		run := &model.Run{ID: id, Workload: "w", Policy: "none", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.CreateRun(ctx, run); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("listed %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run_b" || runs[1].ID != "run_a" {
		t.Errorf("order = %s, %s, want run_b, run_a", runs[0].ID, runs[1].ID)
	}
}

func TestEventsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &model.Run{ID: "run_ev", Workload: "w", Policy: "none", StartedAt: time.Now().UTC()}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	recorded := []trace.Event{
		{Kind: trace.KindInserted, Tick: 0, ThreadID: 1, Queue: 1},
		{Kind: trace.KindRemoved, Tick: 0, ThreadID: 1, Queue: 1},
		{Kind: trace.KindSelected, Tick: 0, ThreadID: 1},
		{Kind: trace.KindReplaced, Tick: 3, ThreadID: 0, Executed: 0},
	}
	if err := SaveTrace(ctx, s, run.ID, recorded); err != nil {
		t.Fatalf("save trace: %v", err)
	}

	events, err := s.ListEventsByRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != len(recorded) {
		t.Fatalf("listed %d events, want %d", len(events), len(recorded))
	}
	for i, ev := range events {
		if ev.Seq != i {
			t.Errorf("event %d seq = %d", i, ev.Seq)
		}
		if string(ev.Kind) != string(recorded[i].Kind) || ev.Tick != recorded[i].Tick || ev.ThreadID != recorded[i].ThreadID {
			t.Errorf("event %d = %+v, want %+v", i, ev, recorded[i])
		}
	}

	// The persisted events re-render the exact trace lines.
	if got := events[0].Line(); got != "Tick 0: Thread 1 is inserting into queue L1" {
		t.Errorf("line = %q", got)
	}
	if got := events[3].Line(); got != "Tick 3: Thread 0 is replaced, and it has executed 0" {
		t.Errorf("line = %q", got)
	}
}

func TestAppendEventRejectsUnknownRun(t *testing.T) {
	s := newTestStore(t)

	ev := &model.TraceEvent{RunID: "run_missing", Seq: 0, Kind: model.EventSelected}
	if err := s.AppendEvent(context.Background(), ev); err == nil {
		t.Error("expected a foreign-key error for an unknown run")
	}
}

func TestThreadStatsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &model.Run{ID: "run_st", Workload: "w", Policy: "none", StartedAt: time.Now().UTC()}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	stats := []*model.ThreadStat{
		{RunID: run.ID, ThreadID: 2, Name: "b", Priority: 70, ArrivalTick: 0, FinishTick: 7, TicksWaited: 4},
		{RunID: run.ID, ThreadID: 1, Name: "a", Priority: 120, ArrivalTick: 0, FinishTick: 4, TicksWaited: 1},
	}
	for _, st := range stats {
		if err := s.CreateThreadStat(ctx, st); err != nil {
			t.Fatalf("create stat: %v", err)
		}
	}

	got, err := s.ListThreadStats(ctx, run.ID)
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d stats, want 2", len(got))
	}
	// Ordered by thread id.
	if got[0].ThreadID != 1 || got[1].ThreadID != 2 {
		t.Errorf("order = %d, %d, want 1, 2", got[0].ThreadID, got[1].ThreadID)
	}
	if got[0].Name != "a" || got[0].TicksWaited != 1 {
		t.Errorf("stat 0 = %+v", got[0])
	}
}
