// Package funcreg provides an in-process callback table that satisfies the
// scheduler's invoker boundary. Host applications that do not embed a
// scripting runtime register plain Go functions, hand the resulting
// handles to the scheduler, and let the table dispatch firings back to
// them.
package funcreg

import (
	"sync"

	"github.com/schedlab/kairos/sched"
)

// A Callback is the body of one registered timed function. It runs on the
// goroutine that advances the scheduler and may schedule, cancel, or
// register further callbacks.
type Callback func(delayUsed sched.VTimeInMS, repeatsLeft int, owner sched.Owner)

// A Table assigns handles to callbacks and dispatches the scheduler's
// firings to them. The zero Table is not usable; create one with NewTable.
//
// Handles are never reused. A released or unreferenced handle stays
// invalid for the life of the table.
type Table struct {
	mu      sync.Mutex
	next    sched.Handle
	entries map[sched.Handle]Callback
	closed  bool
}

// NewTable creates an empty callback table.
func NewTable() *Table {
	return &Table{
		entries: make(map[sched.Handle]Callback),
	}
}

// Ref stores a callback and returns the handle that refers to it.
func (t *Table) Ref(cb Callback) sched.Handle {
	if cb == nil {
		panic("funcreg: nil callback")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		panic("funcreg: table is closed")
	}

	t.next++
	t.entries[t.next] = cb

	return t.next
}

// Unref drops a callback reference directly, without going through the
// scheduler. Use it for handles whose scheduled events were erased.
// Unknown handles are ignored.
func (t *Table) Unref(handle sched.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, handle)
}

// Len returns the number of live callback references.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Close models the owning context going away. Registered callbacks are
// dropped, later firings dispatch to nothing, and the scheduler's release
// probes report the context as gone. Close is idempotent.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.entries = make(map[sched.Handle]Callback)
}

// Invoke dispatches a firing to the callback registered under handle. The
// callback runs without the table lock held, so it can call back into the
// table or the scheduler. Firings for unknown handles are dropped.
func (t *Table) Invoke(
	handle sched.Handle,
	delayUsed sched.VTimeInMS,
	repeatsLeft int,
	owner sched.Owner,
) {
	t.mu.Lock()
	cb := t.entries[handle]
	t.mu.Unlock()

	if cb == nil {
		return
	}

	cb(delayUsed, repeatsLeft, owner)
}

// Release permanently invalidates a handle. The scheduler calls it exactly
// once per handle it will never fire again.
func (t *Table) Release(handle sched.Handle) {
	t.Unref(handle)
}

// SystemLive reports whether the process-level runtime is up. For an
// in-process table that is always the case.
func (t *Table) SystemLive() bool {
	return true
}

// HasContext reports whether the table still accepts releases.
func (t *Table) HasContext() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.closed
}
