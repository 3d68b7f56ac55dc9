package workload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
name: basic
description: three fixed priorities
threads:
  - name: a
    priority: 120
    bursts:
      - run: 3
  - name: b
    priority: 70
    arrival: 5
    user_program: true
    bursts:
      - run: 2
        block: 4
      - run: 2
`

func TestParse(t *testing.T) {
	w, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if w.Name != "basic" {
		t.Errorf("name = %q, want basic", w.Name)
	}
	if len(w.Threads) != 2 {
		t.Fatalf("parsed %d threads, want 2", len(w.Threads))
	}

	a, b := w.Threads[0], w.Threads[1]
	if a.Priority != 120 || a.Arrival != 0 || len(a.Bursts) != 1 {
		t.Errorf("thread a = %+v, want priority 120, arrival 0, one burst", a)
	}
	if !b.UserProgram {
		t.Error("thread b should be marked as a user program")
	}
	if b.Bursts[0].Run != 2 || b.Bursts[0].Block != 4 {
		t.Errorf("thread b burst 0 = %+v, want run 2 block 4", b.Bursts[0])
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "threads: [{name: a, bursts: [{run: 1}]}]",
			want: "name is required",
		},
		{
			name: "no threads",
			yaml: "name: w",
			want: "at least one thread",
		},
		{
			name: "unnamed thread",
			yaml: "name: w\nthreads: [{priority: 10, bursts: [{run: 1}]}]",
			want: "threads[0]: name is required",
		},
		{
			name: "duplicate thread name",
			yaml: "name: w\nthreads: [{name: a, bursts: [{run: 1}]}, {name: a, bursts: [{run: 1}]}]",
			want: "duplicate thread name",
		},
		{
			name: "priority too high",
			yaml: "name: w\nthreads: [{name: a, priority: 150, bursts: [{run: 1}]}]",
			want: "out of range",
		},
		{
			name: "negative priority",
			yaml: "name: w\nthreads: [{name: a, priority: -1, bursts: [{run: 1}]}]",
			want: "out of range",
		},
		{
			name: "negative arrival",
			yaml: "name: w\nthreads: [{name: a, arrival: -5, bursts: [{run: 1}]}]",
			want: "negative arrival",
		},
		{
			name: "no bursts",
			yaml: "name: w\nthreads: [{name: a}]",
			want: "at least one burst",
		},
		{
			name: "zero-length run",
			yaml: "name: w\nthreads: [{name: a, bursts: [{run: 0}]}]",
			want: "run must be positive",
		},
		{
			name: "negative block",
			yaml: "name: w\nthreads: [{name: a, bursts: [{run: 1, block: -1}]}]",
			want: "negative block",
		},
		{
			name: "malformed yaml",
			yaml: "name: [unclosed",
			want: "parse workload",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.Name != "basic" {
		t.Errorf("name = %q, want basic", w.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
