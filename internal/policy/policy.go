// Package policy implements the external priority policy: the authority
// that mutates a thread's priority over its life. The scheduler itself
// never changes priorities; it only reconciles queue membership with them.
package policy

import "fmt"

// Priority bounds enforced on every policy result.
const (
	MinPriority = 0
	MaxPriority = 149
)

// Policy revalues the priority of a waiting thread. It is consulted from
// the tick handler, with interrupts off, for every ready thread.
type Policy interface {
	// Name identifies the policy in run records.
	Name() string
	// Revalue returns the thread's new priority given its current
	// priority, accumulated waiting ticks, and the current tick.
	Revalue(priority, waited, tick int) (int, error)
}

// Aging boosts a waiting thread's priority by Amount every Interval ticks
// waited, the classic anti-starvation feedback rule.
type Aging struct {
	Interval int
	Amount   int
}

// DefaultAging returns the boost rule used when none is configured.
func DefaultAging() *Aging {
	return &Aging{Interval: 1500, Amount: 10}
}

func (a *Aging) Name() string {
	return fmt.Sprintf("aging(%d/%d)", a.Amount, a.Interval)
}

func (a *Aging) Revalue(priority, waited, tick int) (int, error) {
	if a.Interval <= 0 || waited <= 0 || waited%a.Interval != 0 {
		return priority, nil
	}
	return Clamp(priority + a.Amount), nil
}

// None leaves priorities alone.
type None struct{}

func (None) Name() string { return "none" }

func (None) Revalue(priority, waited, tick int) (int, error) {
	return priority, nil
}

// Clamp bounds a priority to the valid range.
func Clamp(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}
