package sched

import "container/heap"

// timeline is a min-heap of events ordered by due time. Events with equal
// due times pop in insertion order (the seq field is the tie-break), which
// gives the FIFO firing order among same-tick events. The heap maintains
// each event's timelineIdx so a single node can be unlinked in O(log n)
// when a handle is replaced.
//
// timeline is not safe for concurrent use on its own; every access happens
// under the process-wide engine lock held by the owning processor.
type timeline []*Event

// Len returns the number of queued events.
func (t timeline) Len() int {
	return len(t)
}

// Less returns true if the i-th event comes due before the j-th event, or
// was scheduled earlier when both come due at the same time.
func (t timeline) Less(i, j int) bool {
	if t[i].dueAt != t[j].dueAt {
		return t[i].dueAt < t[j].dueAt
	}

	return t[i].seq < t[j].seq
}

// Swap changes the position of two events in the timeline.
func (t timeline) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
	t[i].timelineIdx = i
	t[j].timelineIdx = j
}

// Push adds an event to the timeline.
func (t *timeline) Push(x interface{}) {
	ev := x.(*Event)
	ev.timelineIdx = len(*t)
	*t = append(*t, ev)
}

// Pop removes and returns the last event of the underlying slice.
func (t *timeline) Pop() interface{} {
	old := *t
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.timelineIdx = -1
	*t = old[:n-1]
	return ev
}

// peek returns the earliest event without removing it, or nil when the
// timeline is empty.
func (t timeline) peek() *Event {
	if len(t) == 0 {
		return nil
	}

	return t[0]
}

// popEarliest removes and returns the earliest event.
func (t *timeline) popEarliest() *Event {
	return heap.Pop(t).(*Event)
}

// insert queues an event keyed by its dueAt/seq fields.
func (t *timeline) insert(ev *Event) {
	heap.Push(t, ev)
}

// unlink removes one specific event from the middle of the timeline. It
// panics if the event is not queued, since that means the timeline and the
// owning table disagree.
func (t *timeline) unlink(ev *Event) {
	if ev.timelineIdx < 0 || ev.timelineIdx >= len(*t) || (*t)[ev.timelineIdx] != ev {
		panic("sched: event missing from its expected timeline slot")
	}

	heap.Remove(t, ev.timelineIdx)
}
