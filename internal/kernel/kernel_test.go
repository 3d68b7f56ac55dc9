package kernel

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/me/tinykern/internal/trace"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	return New(trace.NopSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAssert(t *testing.T) {
	Assert(true, "must not fire")

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "thread 7 misbehaved") {
			t.Errorf("panic value = %v, want formatted diagnostic", r)
		}
	}()
	Assert(false, "thread %d misbehaved", 7)
}

func TestSetLevelReturnsPrevious(t *testing.T) {
	k := newTestKernel(t)

	if old := k.Interrupt.SetLevel(IntOff); old != IntOn {
		t.Errorf("initial level = %v, want on", old)
	}
	if old := k.Interrupt.SetLevel(IntOn); old != IntOff {
		t.Errorf("restored from = %v, want off", old)
	}
}

func TestAssertOff(t *testing.T) {
	k := newTestKernel(t)
	k.Interrupt.SetLevel(IntOff)
	k.Interrupt.AssertOff("test")

	k.Interrupt.SetLevel(IntOn)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic with interrupts enabled")
		}
	}()
	k.Interrupt.AssertOff("test")
}

func TestOneTick(t *testing.T) {
	k := newTestKernel(t)

	var sawLevel IntLevel = IntOn
	k.Interrupt.TickHandler = func() {
		sawLevel = k.Interrupt.Level()
	}

	if yield := k.Interrupt.OneTick(); yield {
		t.Error("OneTick reported a yield request the handler never made")
	}
	if sawLevel != IntOff {
		t.Error("tick handler ran with interrupts enabled")
	}
	if k.Stats.TotalTicks != 1 || k.Stats.UserTicks != 1 {
		t.Errorf("ticks = %d total / %d user, want 1/1", k.Stats.TotalTicks, k.Stats.UserTicks)
	}
	if k.Interrupt.Level() != IntOn {
		t.Error("OneTick did not restore the interrupt level")
	}
}

// TestOneTickYieldRequest checks the yield flag is reported once and then
// reset.
func TestOneTickYieldRequest(t *testing.T) {
	k := newTestKernel(t)

	requested := true
	k.Interrupt.TickHandler = func() {
		if requested {
			k.Interrupt.YieldOnReturn()
			requested = false
		}
	}

	if !k.Interrupt.OneTick() {
		t.Error("first tick should report the yield request")
	}
	if k.Interrupt.OneTick() {
		t.Error("yield flag leaked into the second tick")
	}
}

func TestIdle(t *testing.T) {
	k := newTestKernel(t)
	k.Interrupt.SetLevel(IntOff)

	fired := 0
	k.Interrupt.TickHandler = func() { fired++ }
	k.Interrupt.Idle()

	if k.Stats.TotalTicks != 1 || k.Stats.IdleTicks != 1 || k.Stats.UserTicks != 0 {
		t.Errorf("ticks = %d total / %d idle / %d user, want 1/1/0",
			k.Stats.TotalTicks, k.Stats.IdleTicks, k.Stats.UserTicks)
	}
	if fired != 1 {
		t.Errorf("tick handler fired %d times, want 1", fired)
	}
}

func TestIdleRequiresInterruptsOff(t *testing.T) {
	k := newTestKernel(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when idling with interrupts enabled")
		}
	}()
	k.Interrupt.Idle()
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusNew, "NEW"},
		{StatusReady, "READY"},
		{StatusRunning, "RUNNING"},
		{StatusBlocked, "BLOCKED"},
		{StatusZombie, "ZOMBIE"},
		{Status(42), "Status(42)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}
