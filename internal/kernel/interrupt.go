package kernel

// IntLevel is the simulated interrupt-enable level. Disabling interrupts is
// the scheduler's sole mutual-exclusion mechanism: every scheduler entry
// point requires IntOff for its whole duration. Locks are unusable there,
// since blocking on a contended lock would re-enter selection and loop.
type IntLevel int

const (
	IntOff IntLevel = iota
	IntOn
)

// String returns the level name for logging.
func (l IntLevel) String() string {
	if l == IntOff {
		return "off"
	}
	return "on"
}

// Interrupt simulates the machine's interrupt unit on a single logical
// processor. Advancing the clock with OneTick fires the tick handler (the
// external preemption policy: wait accounting, priority aging, queue
// maintenance) with interrupts disabled, the way a hardware timer interrupt
// would.
type Interrupt struct {
	kernel *Kernel
	level  IntLevel

	// TickHandler runs once per tick with interrupts off. It is installed
	// by the simulation driver and may call YieldOnReturn to request that
	// the current thread yield at the tick boundary.
	TickHandler func()

	yieldOnReturn bool
}

func newInterrupt(k *Kernel) *Interrupt {
	return &Interrupt{kernel: k, level: IntOn}
}

// Level reports the current interrupt level.
func (i *Interrupt) Level() IntLevel {
	return i.level
}

// SetLevel changes the interrupt level and returns the previous one, so
// callers can restore it on the way out.
func (i *Interrupt) SetLevel(l IntLevel) IntLevel {
	old := i.level
	i.level = l
	return old
}

// AssertOff panics unless interrupts are disabled. Every scheduler entry
// point checks this precondition; violating it is a contract breach in the
// caller, not a recoverable condition.
func (i *Interrupt) AssertOff(op string) {
	Assert(i.level == IntOff, "%s called with interrupts enabled", op)
}

// YieldOnReturn requests that the current thread be preempted once the tick
// in progress completes. Only meaningful from within the tick handler.
func (i *Interrupt) YieldOnReturn() {
	i.yieldOnReturn = true
}

// OneTick advances the simulated clock by one tick on behalf of the current
// thread and runs the tick handler. It reports whether the handler requested
// that the current thread yield; the thread layer acts on it after
// interrupts are re-enabled.
func (i *Interrupt) OneTick() bool {
	old := i.SetLevel(IntOff)
	i.kernel.Stats.TotalTicks++
	i.kernel.Stats.UserTicks++
	if i.TickHandler != nil {
		i.TickHandler()
	}
	yield := i.yieldOnReturn
	i.yieldOnReturn = false
	i.SetLevel(old)
	return yield
}

// Idle advances the clock with no thread to run. Called from the selection
// retry loop when all tiers are empty; it still fires the tick handler so a
// sleeping thread can become ready again.
func (i *Interrupt) Idle() {
	i.AssertOff("Idle")
	i.kernel.Stats.TotalTicks++
	i.kernel.Stats.IdleTicks++
	if i.TickHandler != nil {
		i.TickHandler()
	}
	i.yieldOnReturn = false
}
