// Package workload parses and validates YAML workload definitions: the set
// of threads a simulation runs, with their priorities, arrival ticks, and
// burst scripts.
package workload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workload is a named set of threads to simulate.
type Workload struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Threads     []ThreadSpec `yaml:"threads"`
}

// ThreadSpec describes one simulated thread.
type ThreadSpec struct {
	Name     string  `yaml:"name"`
	Priority int     `yaml:"priority"`
	Arrival  int     `yaml:"arrival"`
	Bursts   []Burst `yaml:"bursts"`

	// UserProgram marks the thread as running a user program, giving it an
	// address space whose state is saved and restored around switches.
	UserProgram bool `yaml:"user_program,omitempty"`
}

// Burst is one segment of a thread's execution script: run for Run ticks,
// then block for Block ticks (0 means no blocking before the next segment).
type Burst struct {
	Run   int `yaml:"run"`
	Block int `yaml:"block,omitempty"`
}

// Parse unmarshals and validates a workload definition.
func Parse(data []byte) (*Workload, error) {
	var w Workload
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse workload: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Load reads and parses a workload file.
func Load(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload %s: %w", path, err)
	}
	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// Validate checks the workload for structural problems.
func (w *Workload) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workload: name is required")
	}
	if len(w.Threads) == 0 {
		return fmt.Errorf("workload %q: at least one thread is required", w.Name)
	}

	seen := make(map[string]bool, len(w.Threads))
	for i, t := range w.Threads {
		if t.Name == "" {
			return fmt.Errorf("workload %q: threads[%d]: name is required", w.Name, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("workload %q: duplicate thread name %q", w.Name, t.Name)
		}
		seen[t.Name] = true

		if t.Priority < 0 || t.Priority > 149 {
			return fmt.Errorf("workload %q: thread %q: priority %d out of range [0,149]", w.Name, t.Name, t.Priority)
		}
		if t.Arrival < 0 {
			return fmt.Errorf("workload %q: thread %q: negative arrival tick %d", w.Name, t.Name, t.Arrival)
		}
		if len(t.Bursts) == 0 {
			return fmt.Errorf("workload %q: thread %q: at least one burst is required", w.Name, t.Name)
		}
		for j, b := range t.Bursts {
			if b.Run <= 0 {
				return fmt.Errorf("workload %q: thread %q: bursts[%d]: run must be positive", w.Name, t.Name, j)
			}
			if b.Block < 0 {
				return fmt.Errorf("workload %q: thread %q: bursts[%d]: negative block", w.Name, t.Name, j)
			}
		}
	}
	return nil
}
