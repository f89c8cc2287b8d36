package sched

import "fmt"

// EventState controls what happens to a pending event when its due time is
// reached.
type EventState int

const (
	// StateRun is the default state. The event executes normally and is
	// rescheduled or removed according to its remaining repeat count.
	StateRun EventState = iota

	// StateAbort skips execution. The event keeps its timeline slot until it
	// is due, then it is removed and its handle is released.
	StateAbort

	// StateErased marks the event as already logically gone. Its handle must
	// not be released again; release either happened elsewhere or is no
	// longer the scheduler's responsibility.
	StateErased
)

// String returns a human-readable representation of the state.
func (s EventState) String() string {
	switch s {
	case StateRun:
		return "run"
	case StateAbort:
		return "abort"
	case StateErased:
		return "erased"
	default:
		return "unknown"
	}
}

// ParseEventState converts the string form back into an EventState. It is
// used by the monitoring API, which receives states as query parameters.
func ParseEventState(s string) (EventState, error) {
	switch s {
	case "run":
		return StateRun, nil
	case "abort":
		return StateAbort, nil
	case "erased":
		return StateErased, nil
	default:
		return StateRun, fmt.Errorf("unknown event state %q", s)
	}
}
