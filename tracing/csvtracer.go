package tracing

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/schedlab/kairos/sched"
)

// CSVTracer stores finished spans in a CSV file, one line per event
// lifetime. Spans still pending at exit are not written.
type CSVTracer struct {
	mu         sync.Mutex
	timeTeller sched.TimeTeller
	path       string
	file       *os.File

	inflightSpans map[string]Span
	spans         []Span
	bufferSize    int
}

// NewCSVTracer creates a new CSVTracer. An empty path picks a unique
// run-scoped name.
func NewCSVTracer(timeTeller sched.TimeTeller, path string) *CSVTracer {
	return &CSVTracer{
		timeTeller:    timeTeller,
		path:          path,
		inflightSpans: make(map[string]Span),
		bufferSize:    1000,
	}
}

// Init creates the tracing csv file.
func (t *CSVTracer) Init() {
	if t.path == "" {
		t.path = "kairos_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "ID, Handle, Kind, What, Processor, Start, End\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// StartSpan records the span start time.
func (t *CSVTracer) StartSpan(span Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	span.StartTime = t.timeTeller.CurrentTime()
	t.inflightSpans[span.ID] = span
}

// StepSpan does nothing.
func (t *CSVTracer) StepSpan(_ Span) {
	// Do nothing.
}

// EndSpan writes the finished span to the CSV file.
func (t *CSVTracer) EndSpan(span Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalSpan, ok := t.inflightSpans[span.ID]
	if !ok {
		return
	}

	delete(t.inflightSpans, span.ID)

	originalSpan.EndTime = t.timeTeller.CurrentTime()
	originalSpan.What = span.What

	t.spans = append(t.spans, originalSpan)
	if len(t.spans) >= t.bufferSize {
		t.flushLocked()
	}
}

// Flush flushes the buffered spans to the CSV file.
func (t *CSVTracer) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flushLocked()
}

func (t *CSVTracer) flushLocked() {
	for _, span := range t.spans {
		fmt.Fprintf(t.file, "%s, %d, %s, %s, %s, %d, %d\n",
			span.ID,
			span.Handle,
			span.Kind,
			span.What,
			span.Processor,
			span.StartTime,
			span.EndTime,
		)
	}

	t.spans = nil
}
