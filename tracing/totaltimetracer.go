package tracing

import (
	"sync"

	"github.com/schedlab/kairos/sched"
)

// TotalTimeTracer collects the total lifetime of scheduled events, from
// scheduling to permanent removal. If the lifetimes of two events overlap,
// this tracer simply adds the two lifetimes together. The filter is applied
// when a span ends, so it sees the reason the event left its processor.
type TotalTimeTracer struct {
	timeTeller    sched.TimeTeller
	filter        SpanFilter
	lock          sync.Mutex
	totalTime     sched.VTimeInMS
	inflightSpans map[string]Span
}

// NewTotalTimeTracer creates a new TotalTimeTracer
func NewTotalTimeTracer(
	timeTeller sched.TimeTeller,
	filter SpanFilter,
) *TotalTimeTracer {
	t := &TotalTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightSpans: make(map[string]Span),
	}
	return t
}

// TotalTime returns the total time spent on the filtered events.
func (t *TotalTimeTracer) TotalTime() sched.VTimeInMS {
	t.lock.Lock()
	time := t.totalTime
	t.lock.Unlock()
	return time
}

// StartSpan records the span start time
func (t *TotalTimeTracer) StartSpan(span Span) {
	span.StartTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.inflightSpans[span.ID] = span
	t.lock.Unlock()
}

// StepSpan does nothing
func (t *TotalTimeTracer) StepSpan(_ Span) {
	// Do nothing
}

// EndSpan records the end of the span
func (t *TotalTimeTracer) EndSpan(span Span) {
	span.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	originalSpan, ok := t.inflightSpans[span.ID]
	if !ok {
		t.lock.Unlock()
		return
	}

	delete(t.inflightSpans, span.ID)

	originalSpan.EndTime = span.EndTime
	originalSpan.What = span.What
	if !t.filter(originalSpan) {
		t.lock.Unlock()
		return
	}

	t.totalTime += originalSpan.EndTime - originalSpan.StartTime
	t.lock.Unlock()
}
