package tracing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/schedlab/kairos/sched"
)

// JSONTracer writes ended spans into a JSON array.
type JSONTracer struct {
	timeTeller sched.TimeTeller

	w             io.Writer
	lock          sync.Mutex
	firstSpan     bool
	inflightSpans map[string]Span
}

// NewJSONTracer creates a JSONTracer writing into a run-scoped file in the
// working directory. The array is closed when the process exits.
func NewJSONTracer(timeTeller sched.TimeTeller) *JSONTracer {
	filename := "kairos_trace_" + xid.New().String() + ".json"

	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording spans in %s\n", filename)

	t := NewJSONTracerWithWriter(timeTeller, f)

	atexit.Register(t.Finish)

	return t
}

// NewJSONTracerWithWriter creates a JSONTracer on an already opened
// writer. The caller closes the array with Finish.
func NewJSONTracerWithWriter(
	timeTeller sched.TimeTeller,
	w io.Writer,
) *JSONTracer {
	_, err := w.Write([]byte("[\n"))
	if err != nil {
		panic(err)
	}

	return &JSONTracer{
		timeTeller:    timeTeller,
		w:             w,
		firstSpan:     true,
		inflightSpans: make(map[string]Span),
	}
}

// StartSpan records the start of a span.
func (t *JSONTracer) StartSpan(span Span) {
	span.StartTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.inflightSpans[span.ID] = span
	t.lock.Unlock()
}

// StepSpan does nothing for now.
func (t *JSONTracer) StepSpan(span Span) {
	// Do nothing for now.
}

// EndSpan writes a completed span out.
func (t *JSONTracer) EndSpan(span Span) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalSpan, ok := t.inflightSpans[span.ID]
	if !ok {
		return
	}

	originalSpan.EndTime = t.timeTeller.CurrentTime()
	originalSpan.What = span.What

	delete(t.inflightSpans, span.ID)

	if t.firstSpan {
		t.firstSpan = false
	} else {
		_, err := t.w.Write([]byte(",\n"))
		if err != nil {
			panic(err)
		}
	}

	b, err := json.Marshal(originalSpan)
	if err != nil {
		panic(err)
	}

	_, err = t.w.Write(b)
	if err != nil {
		panic(err)
	}
}

// Finish closes the JSON array.
func (t *JSONTracer) Finish() {
	_, err := t.w.Write([]byte("\n]"))
	if err != nil {
		panic(err)
	}
}
