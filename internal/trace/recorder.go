package trace

// EventKind discriminates recorded trace events.
type EventKind string

const (
	KindInserted EventKind = "inserted"
	KindRemoved  EventKind = "removed"
	KindSelected EventKind = "selected"
	KindReplaced EventKind = "replaced"
)

// Event is one recorded trace event. Queue is set for insert/remove events,
// Executed for replace events.
type Event struct {
	Kind     EventKind
	Tick     int
	ThreadID int
	Queue    int
	Executed int
}

// Recorder is a Sink that captures events in memory, in order. Used by
// tests and by sinks that persist events elsewhere.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Inserted(tick, threadID, queue int) {
	r.Events = append(r.Events, Event{Kind: KindInserted, Tick: tick, ThreadID: threadID, Queue: queue})
}

func (r *Recorder) Removed(tick, threadID, queue int) {
	r.Events = append(r.Events, Event{Kind: KindRemoved, Tick: tick, ThreadID: threadID, Queue: queue})
}

func (r *Recorder) Selected(tick, threadID int) {
	r.Events = append(r.Events, Event{Kind: KindSelected, Tick: tick, ThreadID: threadID})
}

func (r *Recorder) Replaced(tick, threadID, executed int) {
	r.Events = append(r.Events, Event{Kind: KindReplaced, Tick: tick, ThreadID: threadID, Executed: executed})
}
