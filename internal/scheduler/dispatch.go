package scheduler

import (
	"github.com/me/tinykern/internal/kernel"
	"github.com/me/tinykern/internal/machine"
)

// Run dispatches the processor to nextThread: saves the outgoing thread's
// state, invokes the machine-dependent switch, and cleans up a thread that
// finished during the previous hand-off. finishing is set when the current
// thread will never run again; it is then destroyed once we are no longer
// running on its stack.
//
// The switch is the single designed suspension point in the kernel: control
// leaves this stack entirely and the call returns only when a later dispatch
// switches back to what is now the outgoing thread.
func (s *Scheduler) Run(nextThread kernel.Thread, finishing bool) {
	oldThread := s.kernel.CurrentThread
	tick := s.kernel.Stats.TotalTicks

	s.kernel.Trace.Selected(tick, nextThread.ID())
	s.kernel.Trace.Replaced(tick, oldThread.ID(), oldThread.LastTick())

	s.kernel.Interrupt.AssertOff("Run")

	if finishing {
		kernel.Assert(s.toBeDestroyed == nil,
			"thread %d finished while thread %d is still pending destruction",
			oldThread.ID(), pendingID(s.toBeDestroyed))
		s.toBeDestroyed = oldThread
	}

	if oldThread.HasAddressSpace() {
		oldThread.SaveUserState()
		oldThread.SaveSpaceState()
	}

	oldThread.CheckOverflow()

	s.kernel.CurrentThread = nextThread
	nextThread.SetStatus(kernel.StatusRunning)
	s.kernel.Stats.ContextSwitches++

	s.log.Debug("switching threads", "from", oldThread.Name(), "to", nextThread.Name())

	if !machine.Switch(oldThread.Context(), nextThread.Context()) {
		// Resumed only for teardown: the thread was destroyed while
		// parked. Unwind without touching scheduler state.
		return
	}

	// Back on oldThread's stack, at some later tick. Interrupts must still
	// be off, and the thread that gave us the processor may now be
	// destroyed: it is no longer running on its own stack.
	s.kernel.Interrupt.AssertOff("Run (after switch)")

	s.log.Debug("resumed thread", "thread", oldThread.Name())

	s.CheckToBeDestroyed()

	if oldThread.HasAddressSpace() {
		oldThread.RestoreUserState()
		oldThread.RestoreSpaceState()
	}
}

// CheckToBeDestroyed destroys the thread pending destruction, if any.
// Destruction cannot happen before now (for example in the thread's own
// Finish), because until the switch returned we were still running on that
// thread's stack. Idempotent when nothing is pending.
func (s *Scheduler) CheckToBeDestroyed() {
	if s.toBeDestroyed != nil {
		s.log.Debug("destroying finished thread", "thread", s.toBeDestroyed.Name())
		s.toBeDestroyed.SetStatus(kernel.StatusZombie)
		s.toBeDestroyed.Destroy()
		s.toBeDestroyed = nil
	}
}

func pendingID(t kernel.Thread) int {
	if t == nil {
		return -1
	}
	return t.ID()
}
