// Package tracing records the lifetime of scheduled events as spans. A
// span opens when an event is scheduled, collects one step per firing,
// and closes when the event permanently leaves its processor. Tracers
// consume spans and aggregate or persist them.
package tracing

import "github.com/schedlab/kairos/sched"

// A SpanStep marks one firing within an event's lifetime.
type SpanStep struct {
	Time sched.VTimeInMS `json:"time"`
	What string          `json:"what"`
}

// A Span is the traced lifetime of one scheduled event.
type Span struct {
	ID          string          `json:"id"`
	Handle      sched.Handle    `json:"handle"`
	Kind        string          `json:"kind"`
	What        string          `json:"what"`
	Processor   string          `json:"processor"`
	StartTime   sched.VTimeInMS `json:"start_time"`
	EndTime     sched.VTimeInMS `json:"end_time"`
	RepeatsLeft int             `json:"repeats_left"`
	Steps       []SpanStep      `json:"steps"`
	Detail      interface{}     `json:"-"`
}

// SpanFilter is a function that can filter interesting spans. If this
// function returns true, the span is considered useful.
type SpanFilter func(s Span) bool

// AllSpans is a SpanFilter that keeps everything.
func AllSpans(_ Span) bool {
	return true
}

// SpansEndedBy keeps the spans whose events left their processor for the
// given reason.
func SpansEndedBy(reason sched.DropReason) SpanFilter {
	return func(s Span) bool {
		return s.What == string(reason)
	}
}

// SpansOnProcessor keeps the spans of events owned by the named processor.
func SpansOnProcessor(name string) SpanFilter {
	return func(s Span) bool {
		return s.Processor == name
	}
}
