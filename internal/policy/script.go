package policy

import (
	"fmt"

	"github.com/dop251/goja"
)

// Script is a JavaScript priority policy. The expression is evaluated with
// the variables priority, waited, and tick in scope and must yield a
// number, which becomes the thread's new priority (clamped to the valid
// range). Example: "waited > 0 && waited % 500 == 0 ? priority + 20 : priority".
type Script struct {
	src  string
	prog *goja.Program
}

// NewScript compiles a priority expression.
func NewScript(expr string) (*Script, error) {
	prog, err := goja.Compile("policy", expr, true)
	if err != nil {
		return nil, fmt.Errorf("compile policy expression: %w", err)
	}
	return &Script{src: expr, prog: prog}, nil
}

func (s *Script) Name() string {
	return "script(" + s.src + ")"
}

func (s *Script) Revalue(priority, waited, tick int) (int, error) {
	// A fresh VM per evaluation keeps expressions from leaking state into
	// each other; the expressions are tiny, so setup dominates nothing.
	vm := goja.New()
	if err := vm.Set("priority", priority); err != nil {
		return priority, fmt.Errorf("set priority: %w", err)
	}
	if err := vm.Set("waited", waited); err != nil {
		return priority, fmt.Errorf("set waited: %w", err)
	}
	if err := vm.Set("tick", tick); err != nil {
		return priority, fmt.Errorf("set tick: %w", err)
	}

	v, err := vm.RunProgram(s.prog)
	if err != nil {
		return priority, fmt.Errorf("evaluate policy expression: %w", err)
	}
	return Clamp(int(v.ToInteger())), nil
}
