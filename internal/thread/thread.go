// Package thread implements kernel threads for the simulated machine. A
// thread is backed by a goroutine parked on its machine context; Fork,
// Yield, Sleep, and Finish re-enter the scheduler under the
// interrupts-disabled discipline the scheduler requires.
package thread

import (
	"github.com/me/tinykern/internal/kernel"
	"github.com/me/tinykern/internal/machine"
	"github.com/me/tinykern/internal/scheduler"
)

// stackFencepost guards the simulated execution stack. CheckOverflow
// panics when it has been overwritten.
const stackFencepost = 0xdeadbeef

// numRegisters is the size of the simulated user register file.
const numRegisters = 8

// Thread is a kernel thread. The scheduler accesses it through the
// kernel.Thread interface; priority is mutated only by external policy.
type Thread struct {
	kernel *kernel.Kernel
	sched  *scheduler.Scheduler
	ctx    *machine.Context

	id       int
	name     string
	priority int
	status   kernel.Status

	executionTime int
	timeUsed      int
	lastTick      int
	ticksWaited   int

	space         *AddressSpace
	registers     [numRegisters]int
	userRegisters [numRegisters]int

	sentinel uint32

	body     func()
	onFinish func()
}

// New creates a thread that has not yet been forked.
func New(k *kernel.Kernel, s *scheduler.Scheduler, id int, name string, priority int) *Thread {
	return &Thread{
		kernel:   k,
		sched:    s,
		ctx:      machine.NewContext(),
		id:       id,
		name:     name,
		priority: priority,
		status:   kernel.StatusNew,
		sentinel: stackFencepost,
	}
}

func (t *Thread) ID() int                   { return t.id }
func (t *Thread) Name() string              { return t.name }
func (t *Thread) Priority() int             { return t.priority }
func (t *Thread) SetPriority(p int)         { t.priority = p }
func (t *Thread) Status() kernel.Status     { return t.status }
func (t *Thread) SetStatus(s kernel.Status) { t.status = s }

func (t *Thread) ExecutionTime() int { return t.executionTime }

// RecomputeExecutionTime folds the time used since the last dispatch into
// the burst estimate by exponential averaging.
func (t *Thread) RecomputeExecutionTime() {
	t.executionTime = (t.executionTime + t.timeUsed) / 2
}

func (t *Thread) TimeUsed() int       { return t.timeUsed }
func (t *Thread) SetTimeUsed(n int)   { t.timeUsed = n }
func (t *Thread) LastTick() int       { return t.lastTick }
func (t *Thread) SaveLastTick()       { t.lastTick = t.kernel.Stats.TotalTicks }
func (t *Thread) TicksWaited() int    { return t.ticksWaited }
func (t *Thread) IncTickWaited(n int) { t.ticksWaited += n }

func (t *Thread) Context() *machine.Context { return t.ctx }

// CheckOverflow panics if the stack sentinel was overwritten.
func (t *Thread) CheckOverflow() {
	kernel.Assert(t.sentinel == stackFencepost, "thread %d (%s): stack overflow detected", t.id, t.name)
}

// Destroy releases the machine context, unwinding the parked goroutine.
// A thread can never destroy itself: its stack is still in use.
func (t *Thread) Destroy() {
	kernel.Assert(t != t.kernel.CurrentThread, "thread %d destroyed while current", t.id)
	t.ctx.Release()
}

// SetFinishHook installs a callback run with interrupts off when the thread
// finishes, before it gives up the processor for the last time.
func (t *Thread) SetFinishHook(fn func()) {
	t.onFinish = fn
}

// Fork starts the thread's goroutine, parked until its first dispatch, and
// admits the thread to the ready queues.
func (t *Thread) Fork(body func()) {
	t.body = body
	go t.stub()

	old := t.kernel.Interrupt.SetLevel(kernel.IntOff)
	t.sched.ReadyToRun(t)
	t.kernel.Interrupt.SetLevel(old)
}

// stub is the goroutine entry. The first dispatch resumes it here rather
// than inside a Run call frame, so it performs the post-switch duties
// itself: clean up the thread that handed over the processor, then enable
// interrupts and run the body.
func (t *Thread) stub() {
	if !t.ctx.Park() {
		return // destroyed before first dispatch
	}
	t.sched.CheckToBeDestroyed()
	t.kernel.Interrupt.SetLevel(kernel.IntOn)

	t.body()
	t.Finish()
}

// Yield relinquishes the processor if another thread is ready, re-admitting
// this thread behind it. Returns when this thread is next dispatched.
func (t *Thread) Yield() {
	old := t.kernel.Interrupt.SetLevel(kernel.IntOff)
	kernel.Assert(t == t.kernel.CurrentThread, "Yield by non-current thread %d", t.id)

	t.kernel.Log.Debug("yielding thread", "thread", t.name)

	if next := t.sched.FindNextToRun(); next != nil {
		t.sched.ReadyToRun(t)
		t.sched.Run(next, false)
	}
	t.kernel.Interrupt.SetLevel(old)
}

// Sleep blocks the thread until some collaborator calls ReadyToRun on it
// again. With finishing set the thread never runs again and is destroyed
// once control has left its stack. Idles the machine while no thread is
// ready, so the tick handler can wake a sleeper.
func (t *Thread) Sleep(finishing bool) {
	kernel.Assert(t == t.kernel.CurrentThread, "Sleep by non-current thread %d", t.id)
	t.kernel.Interrupt.AssertOff("Sleep")

	t.kernel.Log.Debug("sleeping thread", "thread", t.name, "finishing", finishing)

	t.status = kernel.StatusBlocked
	next := t.sched.FindNextToRun()
	for next == nil {
		t.kernel.Interrupt.Idle()
		next = t.sched.FindNextToRun()
	}
	t.sched.Run(next, finishing)
	// Reached only when the thread is dispatched again, or not at all when
	// it was finishing: the teardown unwinds through here.
}

// Finish ends the thread. It does not deallocate anything itself: the
// thread is still running on its own stack, so destruction is deferred to
// the dispatch that replaces it.
func (t *Thread) Finish() {
	t.kernel.Interrupt.SetLevel(kernel.IntOff)
	kernel.Assert(t == t.kernel.CurrentThread, "Finish by non-current thread %d", t.id)

	t.kernel.Log.Debug("finishing thread", "thread", t.name)

	if t.onFinish != nil {
		t.onFinish()
	}
	t.Sleep(true)
}

// Step executes one simulated instruction: advance the clock and yield at
// the tick boundary when the interrupt unit asks for it.
func (t *Thread) Step() {
	if t.kernel.Interrupt.OneTick() {
		t.Yield()
	}
}
