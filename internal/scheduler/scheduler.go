// Package scheduler decides which ready thread runs next on the simulated
// processor and performs the context hand-off. Ready threads live in three
// tiers with distinct selection rules: L1 picks the shortest estimated
// burst, L2 the highest priority, L3 plain FIFO. Priority-driven promotion
// between tiers happens in MaintainQueues.
//
// Every entry point assumes interrupts are already disabled; on a
// uniprocessor that is the mutual exclusion. Locks cannot be used here:
// waiting on a busy lock would call back into FindNextToRun and loop.
package scheduler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/me/tinykern/internal/kernel"
)

// Queue numbers for the three ready tiers.
const (
	QueueHigh   = 1
	QueueMedium = 2
	QueueLow    = 3
)

// Priority thresholds dividing the tiers.
const (
	priorityHigh   = 100
	priorityMedium = 50
)

// Scheduler owns the three ready tiers, the deferred-destruction slot, and
// the dirty flag. It holds non-owning thread references while they are
// ready; ownership of the outgoing thread transfers to toBeDestroyed only
// once control has left that thread's stack.
type Scheduler struct {
	kernel *kernel.Kernel
	log    *slog.Logger

	// tiers[q-1] is ready queue Lq. Slices with O(n) removal: tier sizes
	// are small and slices keep the two-phase promotion scan simple.
	tiers [3][]kernel.Thread

	toBeDestroyed kernel.Thread
	dirty         bool
}

// New creates a scheduler with empty ready tiers.
func New(k *kernel.Kernel, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		kernel: k,
		log:    logger.With("component", "scheduler"),
	}
}

// QueueFor maps a priority to the tier it is admitted to.
func QueueFor(priority int) int {
	switch {
	case priority >= priorityHigh:
		return QueueHigh
	case priority >= priorityMedium:
		return QueueMedium
	default:
		return QueueLow
	}
}

// TraceQueue is the queue number stamped on insertion trace lines. The
// derivation 3 - priority/50 is part of the trace contract and is kept even
// though QueueFor computes the same tier for in-range priorities.
func TraceQueue(priority int) int {
	return 3 - priority/50
}

func (s *Scheduler) tier(q int) []kernel.Thread {
	return s.tiers[q-1]
}

func (s *Scheduler) appendTier(q int, t kernel.Thread) {
	s.tiers[q-1] = append(s.tiers[q-1], t)
}

// removeTier removes t from tier q. Membership is an invariant, not a
// recoverable condition.
func (s *Scheduler) removeTier(q int, t kernel.Thread) {
	l := s.tiers[q-1]
	for i, m := range l {
		if m == t {
			s.tiers[q-1] = append(l[:i], l[i+1:]...)
			return
		}
	}
	kernel.Assert(false, "thread %d not in queue L%d", t.ID(), q)
}

// ReadyToRun marks a thread ready and appends it to the tier its priority
// selects. The thread must not already be enqueued.
func (s *Scheduler) ReadyToRun(t kernel.Thread) {
	s.kernel.Interrupt.AssertOff("ReadyToRun")
	s.log.Debug("putting thread on ready list", "thread", t.Name(), "priority", t.Priority())

	t.SetStatus(kernel.StatusReady)
	s.kernel.Trace.Inserted(s.kernel.Stats.TotalTicks, t.ID(), TraceQueue(t.Priority()))
	s.appendTier(QueueFor(t.Priority()), t)
}

// FindNextToRun returns the next thread to be dispatched, removing it from
// its tier, or nil when every tier is empty. The caller marks the returned
// thread running. The accounting pass over the current thread runs exactly
// once, before any tier is scanned, because L1 selection depends on a
// freshly updated estimate.
func (s *Scheduler) FindNextToRun() kernel.Thread {
	s.kernel.Interrupt.AssertOff("FindNextToRun")

	if len(s.tier(QueueHigh)) == 0 && len(s.tier(QueueMedium)) == 0 && len(s.tier(QueueLow)) == 0 {
		return nil
	}

	s.PreprocessThreads()

	if t := s.findNextHigh(); t != nil {
		s.removeTier(QueueHigh, t)
		s.kernel.Trace.Removed(s.kernel.Stats.TotalTicks, t.ID(), QueueHigh)
		return t
	}
	if t := s.findNextMedium(); t != nil {
		s.removeTier(QueueMedium, t)
		s.kernel.Trace.Removed(s.kernel.Stats.TotalTicks, t.ID(), QueueMedium)
		return t
	}
	if t := s.findNextLow(); t != nil {
		s.removeTier(QueueLow, t)
		s.kernel.Trace.Removed(s.kernel.Stats.TotalTicks, t.ID(), QueueLow)
		return t
	}
	return nil
}

// findNextHigh selects the L1 member with the smallest burst estimate.
// Ties go to the earliest-inserted member.
func (s *Scheduler) findNextHigh() kernel.Thread {
	var result kernel.Thread
	minBurst := int(^uint(0) >> 1)
	for _, t := range s.tier(QueueHigh) {
		if t.ExecutionTime() < minBurst {
			minBurst = t.ExecutionTime()
			result = t
		}
	}
	return result
}

// findNextMedium selects the L2 member with the largest priority.
// Ties go to the earliest-inserted member.
func (s *Scheduler) findNextMedium() kernel.Thread {
	var result kernel.Thread
	maxPriority := -1
	for _, t := range s.tier(QueueMedium) {
		if t.Priority() > maxPriority {
			maxPriority = t.Priority()
			result = t
		}
	}
	return result
}

// findNextLow returns the head of L3 (FIFO).
func (s *Scheduler) findNextLow() kernel.Thread {
	l := s.tier(QueueLow)
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// QueueLen reports the number of threads enqueued in tier q.
func (s *Scheduler) QueueLen(q int) int {
	return len(s.tier(q))
}

// ForEachReady applies fn to every enqueued thread, tier by tier in
// insertion order. The external priority policy uses it to revalue waiting
// threads; fn must not add or remove threads.
func (s *Scheduler) ForEachReady(fn func(t kernel.Thread)) {
	for q := QueueHigh; q <= QueueLow; q++ {
		for _, t := range s.tier(q) {
			fn(t)
		}
	}
}

// Dirty reports whether tier membership changed since the flag was last
// cleared. The external preemption policy consumes it to decide whether the
// running thread should yield early.
func (s *Scheduler) Dirty() bool {
	return s.dirty
}

// SetDirty sets or clears the dirty flag.
func (s *Scheduler) SetDirty(dirty bool) {
	s.dirty = dirty
}

// Print dumps the ready-queue contents for diagnostics.
func (s *Scheduler) Print(w io.Writer) {
	fmt.Fprintln(w, "Ready list contents:")
	for q := QueueHigh; q <= QueueLow; q++ {
		fmt.Fprintf(w, "L%d:\n", q)
		for _, t := range s.tier(q) {
			fmt.Fprintf(w, "  Thread %d: %s\n", t.ID(), t.Name())
		}
	}
}
