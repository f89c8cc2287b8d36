package tracing

import (
	"sync"
)

// FiringCountTracer counts callback firings per processor. Unlike the
// lifetime tracers it applies its filter when a span starts, so it can
// count events that repeat forever and never end.
type FiringCountTracer struct {
	filter        SpanFilter
	lock          sync.Mutex
	inflightSpans map[string]Span
	processors    []string
	firingCount   map[string]uint64
	totalFirings  uint64
}

// NewFiringCountTracer creates a new FiringCountTracer
func NewFiringCountTracer(filter SpanFilter) *FiringCountTracer {
	t := &FiringCountTracer{
		filter:        filter,
		inflightSpans: make(map[string]Span),
		firingCount:   make(map[string]uint64),
	}
	return t
}

// Processors returns the names of the processors that fired so far.
func (t *FiringCountTracer) Processors() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.processors
}

// FiringsOn returns the number of firings recorded on the named processor.
func (t *FiringCountTracer) FiringsOn(processor string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.firingCount[processor]
}

// TotalFirings returns the number of firings across all processors.
func (t *FiringCountTracer) TotalFirings() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalFirings
}

// StartSpan registers the span if the filter keeps it
func (t *FiringCountTracer) StartSpan(span Span) {
	if !t.filter(span) {
		return
	}

	t.lock.Lock()
	t.inflightSpans[span.ID] = span
	t.lock.Unlock()
}

// StepSpan counts one firing of a registered span
func (t *FiringCountTracer) StepSpan(span Span) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalSpan, ok := t.inflightSpans[span.ID]
	if !ok {
		return
	}

	_, seen := t.firingCount[originalSpan.Processor]
	if !seen {
		t.processors = append(t.processors, originalSpan.Processor)
	}

	t.firingCount[originalSpan.Processor]++
	t.totalFirings++
}

// EndSpan forgets the span
func (t *FiringCountTracer) EndSpan(span Span) {
	t.lock.Lock()
	_, ok := t.inflightSpans[span.ID]
	if !ok {
		t.lock.Unlock()
		return
	}

	delete(t.inflightSpans, span.ID)
	t.lock.Unlock()
}
