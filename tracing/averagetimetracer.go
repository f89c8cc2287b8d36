package tracing

import (
	"sync"

	"github.com/schedlab/kairos/sched"
)

// AverageTimeTracer collects the average lifetime of scheduled events, from
// scheduling to permanent removal. The filter is applied when a span ends,
// so it sees the reason the event left its processor.
type AverageTimeTracer struct {
	timeTeller    sched.TimeTeller
	filter        SpanFilter
	lock          sync.Mutex
	averageTime   float64
	inflightSpans map[string]Span
	spanCount     uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer
func NewAverageTimeTracer(
	timeTeller sched.TimeTeller,
	filter SpanFilter,
) *AverageTimeTracer {
	t := &AverageTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightSpans: make(map[string]Span),
	}
	return t
}

// AverageTime returns the average event lifetime in logical milliseconds.
func (t *AverageTimeTracer) AverageTime() float64 {
	t.lock.Lock()
	time := t.averageTime
	t.lock.Unlock()
	return time
}

// TotalCount returns the total number of counted events.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.spanCount
}

// StartSpan records the span start time
func (t *AverageTimeTracer) StartSpan(span Span) {
	span.StartTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.inflightSpans[span.ID] = span
	t.lock.Unlock()
}

// StepSpan does nothing
func (t *AverageTimeTracer) StepSpan(_ Span) {
	// Do nothing
}

// EndSpan records the end of the span
func (t *AverageTimeTracer) EndSpan(span Span) {
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

	spanTime := originalSpan.EndTime - originalSpan.StartTime
	t.averageTime = (t.averageTime*float64(t.spanCount) + float64(spanTime)) /
		float64(t.spanCount+1)
	t.spanCount++
	t.lock.Unlock()
}
