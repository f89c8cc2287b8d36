package tracing

// A Tracer can collect spans that describe the life of scheduled events.
type Tracer interface {
	StartSpan(span Span)
	StepSpan(span Span)
	EndSpan(span Span)
}
