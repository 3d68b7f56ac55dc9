package scheduler

import "github.com/me/tinykern/internal/kernel"

// Promotion return codes from MaintainQueues.
const (
	promotedNone   = 0
	promotedHigh   = 1
	promotedMedium = 2
)

// MaintainQueues reconciles tier membership with current priority. Priority
// is raised by external policy while a thread waits, so membership goes
// stale; this pass is the only mechanism that repairs it and must run before
// tier membership is trusted for selection.
//
// Two stages, in this order: first L3 members with priority >= 50 move to
// L2, then L2 members with priority >= 100 move to L1. The second stage
// re-examines members promoted by the first, so a thread that aged past 100
// while sitting in L3 climbs both tiers in one pass. Each stage collects
// its move-set before mutating the source tier.
//
// Returns 1 if any thread entered L1, else 2 if any entered L2, else 0.
// The caller sets the dirty flag on a non-zero return; this pass does not
// touch it.
func (s *Scheduler) MaintainQueues() int {
	tick := s.kernel.Stats.TotalTicks

	var toMedium []kernel.Thread
	for _, t := range s.tier(QueueLow) {
		if t.Priority() >= priorityMedium {
			s.kernel.Trace.Removed(tick, t.ID(), QueueLow)
			s.kernel.Trace.Inserted(tick, t.ID(), TraceQueue(t.Priority()))
			s.appendTier(QueueMedium, t)
			toMedium = append(toMedium, t)
		}
	}
	for _, t := range toMedium {
		s.removeTier(QueueLow, t)
	}

	var toHigh []kernel.Thread
	for _, t := range s.tier(QueueMedium) {
		if t.Priority() >= priorityHigh {
			s.kernel.Trace.Removed(tick, t.ID(), QueueMedium)
			s.kernel.Trace.Inserted(tick, t.ID(), TraceQueue(t.Priority()))
			s.appendTier(QueueHigh, t)
			toHigh = append(toHigh, t)
		}
	}
	for _, t := range toHigh {
		s.removeTier(QueueMedium, t)
	}

	switch {
	case len(toHigh) > 0:
		return promotedHigh
	case len(toMedium) > 0:
		return promotedMedium
	default:
		return promotedNone
	}
}

// IncTickToThreads accumulates wait time: every enqueued thread other than
// the current one gains one tick of waiting. The amount argument is ignored
// and the increment is always exactly one; callers depend on this behavior.
func (s *Scheduler) IncTickToThreads(amount int) {
	for q := QueueHigh; q <= QueueLow; q++ {
		for _, t := range s.tier(q) {
			if t != s.kernel.CurrentThread {
				t.IncTickWaited(1)
			}
		}
	}
}

// PreprocessThreads is the accounting pass over the thread occupying the
// processor: fold the time it actually used into its burst estimate, stamp
// its last-executed tick, and zero its used-time counter. Runs exactly once
// per selection, from FindNextToRun.
func (s *Scheduler) PreprocessThreads() {
	cur := s.kernel.CurrentThread
	cur.RecomputeExecutionTime()
	cur.SaveLastTick()
	cur.SetTimeUsed(0)
}
