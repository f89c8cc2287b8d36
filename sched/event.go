// Package sched implements a timed-callback scheduler for host applications
// that embed a scripting runtime. Callers register a callback handle with a
// delay range and a repeat count on a per-owner Processor; a tick driver
// advances each processor's logical clock and fires the callbacks that have
// come due through the host's Invoker. A Registry tracks every live
// processor so state changes and teardown can reach all of them from any
// goroutine.
package sched

import "math/rand"

// A Handle is an opaque reference into the external runtime's callback
// table. The scheduler never interprets it; it only passes it to the
// Invoker and releases it exactly once when the event will never fire
// again.
type Handle int64

// An Event is one pending timed callback. It is owned by exactly one
// processor and referenced from at most one timeline slot and at most one
// lookup slot while it is live.
type Event struct {
	id     string
	handle Handle
	state  EventState

	delay    VTimeInMS
	minDelay VTimeInMS
	maxDelay VTimeInMS

	// repeatsLeft counts the remaining executions. 0 repeats forever,
	// 1 marks the final execution.
	repeatsLeft int

	dueAt VTimeInMS
	seq   uint64

	// timelineIdx is the event's current position in the timeline heap,
	// maintained by timeline.Swap so the stale node of a replaced handle
	// can be unlinked in O(log n). -1 when not queued.
	timelineIdx int
}

func newEvent(handle Handle, minDelay, maxDelay VTimeInMS, repeats int) *Event {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if repeats < 0 {
		repeats = 0
	}

	return &Event{
		id:          GetIDGenerator().Generate(),
		handle:      handle,
		state:       StateRun,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		repeatsLeft: repeats,
		timelineIdx: -1,
	}
}

// drawDelay sets delay to a value uniformly distributed in
// [minDelay, maxDelay]. Equal bounds yield a deterministic delay without
// touching the random source.
func (e *Event) drawDelay(rng *rand.Rand) {
	if e.minDelay == e.maxDelay {
		e.delay = e.minDelay
		return
	}

	span := int64(e.maxDelay-e.minDelay) + 1
	e.delay = e.minDelay + VTimeInMS(rng.Int63n(span))
}

// An EventInfo is a point-in-time snapshot of a pending event. Hooks,
// tracers, and the monitoring API receive snapshots, never live events.
type EventInfo struct {
	ID          string    `json:"id"`
	Handle      Handle    `json:"handle"`
	State       string    `json:"state"`
	Delay       VTimeInMS `json:"delay"`
	MinDelay    VTimeInMS `json:"min_delay"`
	MaxDelay    VTimeInMS `json:"max_delay"`
	RepeatsLeft int       `json:"repeats_left"`
	DueAt       VTimeInMS `json:"due_at"`
}

func (e *Event) info() EventInfo {
	return EventInfo{
		ID:          e.id,
		Handle:      e.handle,
		State:       e.state.String(),
		Delay:       e.delay,
		MinDelay:    e.minDelay,
		MaxDelay:    e.maxDelay,
		RepeatsLeft: e.repeatsLeft,
		DueAt:       e.dueAt,
	}
}
