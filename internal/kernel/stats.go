package kernel

// Stats accumulates machine-wide tick counters. TotalTicks is the clock the
// scheduler stamps on every trace line.
type Stats struct {
	TotalTicks      int
	IdleTicks       int
	UserTicks       int
	ContextSwitches int
}
