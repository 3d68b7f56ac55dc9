// Package kernel holds the shared state of the simulated kernel: the
// current-thread slot, the tick statistics, the interrupt unit, and the
// trace sink. The original design reached for a global kernel singleton;
// here the Kernel is an explicit context passed to every component, which
// keeps the scheduling core testable without booting a whole machine.
package kernel

import (
	"fmt"
	"log/slog"

	"github.com/me/tinykern/internal/machine"
	"github.com/me/tinykern/internal/trace"
)

// Status is a thread's scheduling state.
type Status int

const (
	StatusNew Status = iota
	StatusReady
	StatusRunning
	StatusBlocked
	StatusZombie
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusReady:
		return "READY"
	case StatusRunning:
		return "RUNNING"
	case StatusBlocked:
		return "BLOCKED"
	case StatusZombie:
		return "ZOMBIE"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Thread is the capability surface the scheduler requires from a kernel
// thread. The scheduler holds non-owning references to Threads while they
// are ready and takes transient ownership only for deferred destruction.
// Priority is mutated by external policy, never by the scheduler.
type Thread interface {
	ID() int
	Name() string

	Priority() int
	SetPriority(p int)

	Status() Status
	SetStatus(s Status)

	// ExecutionTime is the burst-length estimate used by the high tier's
	// shortest-estimate-first strategy. RecomputeExecutionTime folds the
	// time used since the last dispatch into the estimate; the weighting
	// rule belongs to the thread, not the scheduler.
	ExecutionTime() int
	RecomputeExecutionTime()

	TimeUsed() int
	SetTimeUsed(n int)
	LastTick() int
	SaveLastTick()
	TicksWaited() int
	IncTickWaited(n int)

	// User-state hooks. HasAddressSpace reports whether the thread runs a
	// user program; save/restore are delegated around every switch.
	HasAddressSpace() bool
	SaveUserState()
	RestoreUserState()
	SaveSpaceState()
	RestoreSpaceState()

	// CheckOverflow panics if the thread's execution stack was corrupted.
	CheckOverflow()

	// Context is the machine-dependent switch state backing the thread.
	Context() *machine.Context

	// Destroy releases the thread's machine context. Only the scheduler's
	// deferred-destruction slot may call it, and never on the current thread.
	Destroy()
}

// Kernel is the explicit kernel context threaded through the scheduler,
// the interrupt unit, and the thread layer.
type Kernel struct {
	Stats     *Stats
	Interrupt *Interrupt
	Trace     trace.Sink
	Log       *slog.Logger

	// CurrentThread is the thread occupying the processor. It is read and
	// written only with interrupts disabled.
	CurrentThread Thread
}

// New assembles a kernel context around the given trace sink and logger.
func New(sink trace.Sink, logger *slog.Logger) *Kernel {
	k := &Kernel{
		Stats: &Stats{},
		Trace: sink,
		Log:   logger.With("component", "kernel"),
	}
	k.Interrupt = newInterrupt(k)
	return k
}

// Assert panics with a diagnostic when cond is false. Scheduler invariants
// have no recoverable-error channel: a violated invariant is a programming
// error in a caller and cannot be safely continued past.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("kernel: assertion failed: " + fmt.Sprintf(format, args...))
	}
}
