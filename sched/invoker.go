package sched

// An Invoker is the scheduler's only external boundary: the entry point of
// the runtime that owns the callback table. The scheduler calls Invoke to
// run a callback body and Release to permanently drop a handle reference it
// will never fire again.
//
// Invoke runs synchronously on the goroutine driving Advance and may call
// back into the scheduler (for example to cancel or reschedule by handle);
// the drain loop is ordered so that a callback cancelling its own handle
// removes the freshly rescheduled instance, not the one executing.
//
// Release must be called at most once per handle and never after the owning
// context is gone. The scheduler queries SystemLive and HasContext before
// every release, so an invoker that reports a dead runtime is never asked
// to touch an invalid reference.
type Invoker interface {
	// Invoke executes the callback body identified by handle. delayUsed is
	// the delay the firing waited for and repeatsLeft the pre-decrement
	// repeat count to report (0 means the event repeats forever). owner is
	// the processor's domain object, or nil for the global processor.
	Invoke(handle Handle, delayUsed VTimeInMS, repeatsLeft int, owner Owner)

	// Release permanently invalidates a handle reference in the runtime's
	// callback table.
	Release(handle Handle)

	// SystemLive reports whether the runtime as a whole is still up.
	SystemLive() bool

	// HasContext reports whether the scripting context owning the callback
	// table still exists.
	HasContext() bool
}
