package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/me/tinykern/internal/config"
	"github.com/me/tinykern/internal/store"
	"github.com/me/tinykern/pkg/model"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return New(config.DefaultServeConfig(), st, logger), st
}

func seedRun(t *testing.T, st store.Store, id string) {
	t.Helper()
	ctx := context.Background()

	run := &model.Run{ID: id, Workload: "basic", Policy: "none", StartedAt: time.Now().UTC()}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	events := []*model.TraceEvent{
		{RunID: id, Seq: 0, Tick: 0, ThreadID: 1, Kind: model.EventInserted, Queue: 1},
		{RunID: id, Seq: 1, Tick: 0, ThreadID: 1, Kind: model.EventSelected},
	}
	for _, ev := range events {
		if err := st.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	st1 := &model.ThreadStat{RunID: id, ThreadID: 1, Name: "a", Priority: 120, FinishTick: 4, TicksWaited: 1}
	if err := st.CreateThreadStat(ctx, st1); err != nil {
		t.Fatalf("seed stat: %v", err)
	}
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
}

func TestListRuns(t *testing.T) {
	s, st := newTestServer(t)
	seedRun(t, st, "run_1")

	rec := doGet(t, s, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var runs []*model.Run
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run_1" {
		t.Errorf("runs = %+v, want one run_1", runs)
	}
}

func TestGetRun(t *testing.T) {
	s, st := newTestServer(t)
	seedRun(t, st, "run_1")

	rec := doGet(t, s, "/api/runs/run_1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var run model.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Workload != "basic" {
		t.Errorf("workload = %q, want basic", run.Workload)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/api/runs/run_missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Error("error body is empty")
	}
}

func TestListEvents(t *testing.T) {
	s, st := newTestServer(t)
	seedRun(t, st, "run_1")

	rec := doGet(t, s, "/api/runs/run_1/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var events []*model.TraceEvent
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("listed %d events, want 2", len(events))
	}
	if events[0].Kind != model.EventInserted || events[1].Kind != model.EventSelected {
		t.Errorf("event kinds = %s, %s", events[0].Kind, events[1].Kind)
	}

	rec = doGet(t, s, "/api/runs/run_missing/events")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown run = %d, want 404", rec.Code)
	}
}

func TestListThreadStats(t *testing.T) {
	s, st := newTestServer(t)
	seedRun(t, st, "run_1")

	rec := doGet(t, s, "/api/runs/run_1/threads")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats []*model.ThreadStat
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "a" {
		t.Errorf("stats = %+v, want one stat for thread a", stats)
	}
}
