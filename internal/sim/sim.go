// Package sim drives a complete simulation: it boots a kernel, builds
// threads from a workload definition, and plays the roles the scheduler
// leaves to external collaborators: the tick source, the priority policy,
// and the preemption decision that consumes the dirty flag.
package sim

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/me/tinykern/internal/kernel"
	"github.com/me/tinykern/internal/policy"
	"github.com/me/tinykern/internal/scheduler"
	"github.com/me/tinykern/internal/thread"
	"github.com/me/tinykern/internal/trace"
	"github.com/me/tinykern/internal/workload"
)

// Config holds simulation parameters.
type Config struct {
	// Quantum is the round-robin time slice for the low tier.
	Quantum int
	// MaxTicks aborts a run that exceeds it, guarding against workloads
	// that never settle.
	MaxTicks int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Quantum: 100, MaxTicks: 1_000_000}
}

// Result summarizes a finished run.
type Result struct {
	TotalTicks      int
	IdleTicks       int
	ContextSwitches int
	Threads         []ThreadResult
}

// ThreadResult is the per-thread outcome.
type ThreadResult struct {
	ID          int
	Name        string
	Priority    int // final priority, after policy adjustments
	Arrival     int
	FinishTick  int
	TicksWaited int
}

// Turnaround is the span from arrival to completion.
func (r ThreadResult) Turnaround() int {
	return r.FinishTick - r.Arrival
}

// Sim is one simulation in progress.
type Sim struct {
	cfg    Config
	kernel *kernel.Kernel
	sched  *scheduler.Scheduler
	policy policy.Policy
	log    *slog.Logger

	main     *thread.Thread
	pending  []*threadRec // not yet admitted, sorted by arrival
	sleeping []*sleeper
	recs     []*threadRec

	remaining int
}

type threadRec struct {
	spec       workload.ThreadSpec
	th         *thread.Thread
	finishTick int
}

type sleeper struct {
	th   *thread.Thread
	wake int
}

// New builds a simulation for the given workload. pol may be nil for a
// fixed-priority run; sink receives the scheduler trace.
func New(w *workload.Workload, pol policy.Policy, cfg Config, sink trace.Sink, logger *slog.Logger) *Sim {
	k := kernel.New(sink, logger)
	s := &Sim{
		cfg:    cfg,
		kernel: k,
		sched:  scheduler.New(k, logger),
		policy: pol,
		log:    logger.With("component", "sim"),
	}

	for i, spec := range w.Threads {
		rec := &threadRec{spec: spec, finishTick: -1}
		rec.th = thread.New(k, s.sched, i+1, spec.Name, spec.Priority)
		if spec.UserProgram {
			rec.th.SetSpace(thread.NewAddressSpace(spec.Name))
		}
		s.recs = append(s.recs, rec)
	}

	s.pending = append(s.pending, s.recs...)
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].spec.Arrival < s.pending[j].spec.Arrival
	})

	return s
}

// Run executes the simulation to completion on the calling goroutine, which
// becomes the kernel's bootstrap thread. It returns the per-thread results
// and machine statistics.
func (s *Sim) Run() (*Result, error) {
	s.main = thread.New(s.kernel, s.sched, 0, "main", 0)
	s.main.SetStatus(kernel.StatusRunning)
	s.kernel.CurrentThread = s.main
	s.kernel.Interrupt.TickHandler = s.onTick
	s.remaining = len(s.recs)

	// Threads arriving at tick zero exist before the machine starts.
	old := s.kernel.Interrupt.SetLevel(kernel.IntOff)
	s.admitDue()
	s.kernel.Interrupt.SetLevel(old)

	s.log.Info("simulation started", "threads", len(s.recs), "quantum", s.cfg.Quantum)

	// The bootstrap thread is the idle loop: lowest priority, never blocks,
	// so selection always has a fallback and the clock always advances.
	for s.remaining > 0 {
		if s.kernel.Stats.TotalTicks > s.cfg.MaxTicks {
			return nil, fmt.Errorf("simulation exceeded %d ticks with %d threads unfinished",
				s.cfg.MaxTicks, s.remaining)
		}
		s.main.Step()
	}

	res := &Result{
		TotalTicks:      s.kernel.Stats.TotalTicks,
		IdleTicks:       s.kernel.Stats.IdleTicks,
		ContextSwitches: s.kernel.Stats.ContextSwitches,
	}
	for _, rec := range s.recs {
		res.Threads = append(res.Threads, ThreadResult{
			ID:          rec.th.ID(),
			Name:        rec.th.Name(),
			Priority:    rec.th.Priority(),
			Arrival:     rec.spec.Arrival,
			FinishTick:  rec.finishTick,
			TicksWaited: rec.th.TicksWaited(),
		})
	}

	s.log.Info("simulation finished",
		"total_ticks", res.TotalTicks,
		"idle_ticks", res.IdleTicks,
		"context_switches", res.ContextSwitches)

	return res, nil
}

// onTick runs once per tick with interrupts off: charge the current thread,
// accumulate wait time, admit arrivals, wake sleepers, revalue priorities,
// reconcile the queues, and decide whether the current thread yields at the
// tick boundary.
func (s *Sim) onTick() {
	cur := s.kernel.CurrentThread
	cur.SetTimeUsed(cur.TimeUsed() + 1)

	s.sched.IncTickToThreads(1)
	s.admitDue()
	s.wakeSleepers()
	s.applyPolicy()

	if r := s.sched.MaintainQueues(); r != 0 {
		s.sched.SetDirty(true)
	}

	if s.shouldPreempt(cur) {
		s.kernel.Interrupt.YieldOnReturn()
		s.sched.SetDirty(false)
	}
}

// admitDue forks threads whose arrival tick has come.
func (s *Sim) admitDue() {
	now := s.kernel.Stats.TotalTicks
	for len(s.pending) > 0 && s.pending[0].spec.Arrival <= now {
		rec := s.pending[0]
		s.pending = s.pending[1:]

		s.log.Debug("admitting thread", "thread", rec.spec.Name, "priority", rec.spec.Priority)

		rec.th.SetFinishHook(func() {
			rec.finishTick = s.kernel.Stats.TotalTicks
			s.remaining--
		})
		rec.th.Fork(s.body(rec))
	}
}

// body builds the thread's execution script: run each burst one simulated
// instruction at a time, blocking between bursts where the script says so.
func (s *Sim) body(rec *threadRec) func() {
	return func() {
		for _, b := range rec.spec.Bursts {
			for i := 0; i < b.Run; i++ {
				rec.th.Step()
			}
			if b.Block > 0 {
				s.block(rec.th, b.Block)
			}
		}
	}
}

// block puts the thread to sleep for d ticks, simulating I/O.
func (s *Sim) block(t *thread.Thread, d int) {
	old := s.kernel.Interrupt.SetLevel(kernel.IntOff)
	s.sleeping = append(s.sleeping, &sleeper{th: t, wake: s.kernel.Stats.TotalTicks + d})
	t.Sleep(false)
	s.kernel.Interrupt.SetLevel(old)
}

// wakeSleepers readmits threads whose block interval has elapsed.
func (s *Sim) wakeSleepers() {
	now := s.kernel.Stats.TotalTicks
	kept := s.sleeping[:0]
	for _, sl := range s.sleeping {
		if sl.wake <= now {
			s.sched.ReadyToRun(sl.th)
		} else {
			kept = append(kept, sl)
		}
	}
	s.sleeping = kept
}

// applyPolicy revalues the priority of every waiting thread. The bootstrap
// thread is exempt: it must stay at the bottom of the low tier so it never
// outranks workload threads.
func (s *Sim) applyPolicy() {
	if s.policy == nil {
		return
	}
	tick := s.kernel.Stats.TotalTicks
	s.sched.ForEachReady(func(t kernel.Thread) {
		if t == kernel.Thread(s.main) {
			return
		}
		p, err := s.policy.Revalue(t.Priority(), t.TicksWaited(), tick)
		if err != nil {
			s.log.Warn("policy error", "thread", t.Name(), "error", err)
			return
		}
		if p != t.Priority() {
			s.log.Debug("priority revalued", "thread", t.Name(), "from", t.Priority(), "to", p)
			t.SetPriority(p)
		}
	})
}

// shouldPreempt decides whether the running thread yields at this tick
// boundary: always when a thread sits in a tier above the runner's, and on
// quantum expiry when the runner shares the low tier with waiting threads.
// The bootstrap thread yields to anyone: it is the idle loop.
// Acting on the decision consumes the scheduler's dirty hint.
func (s *Sim) shouldPreempt(cur kernel.Thread) bool {
	if cur == kernel.Thread(s.main) {
		return s.sched.QueueLen(scheduler.QueueHigh)+
			s.sched.QueueLen(scheduler.QueueMedium)+
			s.sched.QueueLen(scheduler.QueueLow) > 0
	}

	curQ := scheduler.QueueFor(cur.Priority())
	for q := scheduler.QueueHigh; q < curQ; q++ {
		if s.sched.QueueLen(q) > 0 {
			return true
		}
	}
	if curQ == scheduler.QueueLow && s.sched.QueueLen(scheduler.QueueLow) > 0 &&
		cur.TimeUsed() >= s.cfg.Quantum {
		return true
	}
	return false
}
