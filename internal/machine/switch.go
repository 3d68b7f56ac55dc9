// Package machine provides the machine-dependent context-switch primitive
// for the simulated kernel. Each kernel thread is backed by a goroutine; a
// Context holds the handoff channel that parks and resumes that goroutine.
// No other package touches these channels directly.
package machine

// Context is the per-thread switch state. A parked thread's goroutine blocks
// inside Park until some later dispatch unparks it, or until Release tears
// the context down.
type Context struct {
	resume chan struct{}
}

// NewContext creates a context whose thread is not yet running.
// The buffer allows a thread to switch to itself.
func NewContext() *Context {
	return &Context{resume: make(chan struct{}, 1)}
}

// Park blocks until the context is resumed by a dispatch. It returns false
// when the context was released instead, in which case the caller must
// unwind without touching scheduler state.
func (c *Context) Park() bool {
	_, ok := <-c.resume
	return ok
}

// Switch transfers control from old to next: it resumes next's goroutine and
// parks the calling one. It returns only when a later dispatch switches back
// to old; the return value is false when old was released while parked.
func Switch(old, next *Context) bool {
	next.resume <- struct{}{}
	return old.Park()
}

// Release tears the context down, waking its parked goroutine for the last
// time. The context must not be switched to afterwards.
func (c *Context) Release() {
	close(c.resume)
}
