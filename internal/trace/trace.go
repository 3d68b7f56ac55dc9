// Package trace emits the scheduler's structured trace lines. The line
// formats are a compatibility contract: downstream tooling parses them, so
// they are reproduced byte for byte. Where the lines end up (console, file,
// store) is incidental and chosen by the injected sink.
package trace

import (
	"fmt"
	"io"
)

// Sink receives scheduler trace events. All methods are called with
// interrupts disabled; implementations must not block on kernel state.
type Sink interface {
	// Inserted records a thread entering a ready queue.
	Inserted(tick, threadID, queue int)
	// Removed records a thread leaving a ready queue.
	Removed(tick, threadID, queue int)
	// Selected records a thread being dispatched.
	Selected(tick, threadID int)
	// Replaced records a thread giving up the processor, with the tick at
	// which it last executed.
	Replaced(tick, threadID, executed int)
}

// WriterSink renders trace lines to an io.Writer (console or file).
type WriterSink struct {
	w io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Inserted(tick, threadID, queue int) {
	fmt.Fprintf(s.w, "Tick %d: Thread %d is inserting into queue L%d\n", tick, threadID, queue)
}

func (s *WriterSink) Removed(tick, threadID, queue int) {
	fmt.Fprintf(s.w, "Tick %d: Thread %d is removed from queue L%d\n", tick, threadID, queue)
}

func (s *WriterSink) Selected(tick, threadID int) {
	fmt.Fprintf(s.w, "Tick %d: Thread %d is now selected for execution\n", tick, threadID)
}

func (s *WriterSink) Replaced(tick, threadID, executed int) {
	fmt.Fprintf(s.w, "Tick %d: Thread %d is replaced, and it has executed %d\n", tick, threadID, executed)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Inserted(tick, threadID, queue int) {
	for _, s := range m {
		s.Inserted(tick, threadID, queue)
	}
}

func (m MultiSink) Removed(tick, threadID, queue int) {
	for _, s := range m {
		s.Removed(tick, threadID, queue)
	}
}

func (m MultiSink) Selected(tick, threadID int) {
	for _, s := range m {
		s.Selected(tick, threadID)
	}
}

func (m MultiSink) Replaced(tick, threadID, executed int) {
	for _, s := range m {
		s.Replaced(tick, threadID, executed)
	}
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Inserted(tick, threadID, queue int)    {}
func (NopSink) Removed(tick, threadID, queue int)     {}
func (NopSink) Selected(tick, threadID int)           {}
func (NopSink) Replaced(tick, threadID, executed int) {}
