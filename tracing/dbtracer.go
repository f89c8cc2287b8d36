package tracing

import (
	"fmt"
	"sync"

	"github.com/schedlab/kairos/recording"
	"github.com/schedlab/kairos/sched"
	"github.com/tebeka/atexit"
)

type spanTableEntry struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	What      string `json:"what"`
	Processor string `json:"processor"`
	Handle    int64  `json:"handle"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
}

// sessionTableEntry indexes one tracing session in the trace table.
type sessionTableEntry struct {
	TableName    string `json:"table_name"`
	SessionStart uint64 `json:"session_start"`
	SessionEnd   uint64 `json:"session_end"`
}

// DBTracer is a tracer that can store spans into a database. DBTracers can
// connect with different backends so that the spans can be stored in
// different types of databases (e.g., SQLite files, ClickHouse servers).
//
// Tracing is organized in sessions: each EnableTracing call opens a fresh
// span table, and StopTracingAtCurrentTime closes it and files the table
// under the trace index. Spans that end outside a session are discarded.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sched.TimeTeller
	backend    recording.Recorder

	startTime, endTime sched.VTimeInMS

	tracingSpans  map[string]Span
	isTracingFlag bool

	traceCount       int
	currentTableName string
	sessionStartTime sched.VTimeInMS
	sessionEndTime   sched.VTimeInMS
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sched.TimeTeller,
	backend recording.Recorder,
) *DBTracer {
	backend.CreateTable("trace", sessionTableEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      backend,
		tracingSpans: make(map[string]Span),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// IsTracing tells whether a tracing session is currently open.
func (t *DBTracer) IsTracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isTracingFlag
}

// SetTimeRange limits tracing to spans that live within the given logical
// time range. Zero bounds are ignored.
func (t *DBTracer) SetTimeRange(startTime, endTime sched.VTimeInMS) {
	t.startTime = startTime
	t.endTime = endTime
}

// StartSpan marks the start of a span.
func (t *DBTracer) StartSpan(span Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startingSpanMustBeValid(span)

	span.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && span.StartTime > t.endTime {
		return
	}

	t.tracingSpans[span.ID] = span
}

func (t *DBTracer) startingSpanMustBeValid(span Span) {
	if span.ID == "" {
		panic("span ID must be set")
	}

	if span.Kind == "" {
		panic("span kind must be set")
	}

	if span.What == "" {
		panic("span what must be set")
	}

	if span.Processor == "" {
		panic("span processor must be set")
	}
}

// StepSpan marks a step of a span.
func (t *DBTracer) StepSpan(_ Span) {
	// Do nothing for now.
}

// EndSpan marks the end of a span. The span's What carries the reason the
// event left its processor and replaces the pending marker recorded at
// start time.
func (t *DBTracer) EndSpan(span Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	span.EndTime = t.timeTeller.CurrentTime()

	if t.startTime > 0 && span.EndTime < t.startTime {
		delete(t.tracingSpans, span.ID)
		return
	}

	originalSpan, ok := t.tracingSpans[span.ID]
	if !ok {
		return
	}

	originalSpan.EndTime = span.EndTime
	originalSpan.What = span.What

	if t.isTracingFlag && t.currentTableName != "" {
		t.writeSpanToDB(originalSpan)
	}

	delete(t.tracingSpans, span.ID)
}

// EnableTracing opens a new tracing session backed by a fresh span table.
func (t *DBTracer) EnableTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingSpans = make(map[string]Span)

	t.isTracingFlag = true
	t.traceCount++
	t.sessionStartTime = t.timeTeller.CurrentTime()
	t.sessionEndTime = 0
	t.currentTableName = fmt.Sprintf("trace%d", t.traceCount)
	t.backend.CreateTable(t.currentTableName, spanTableEntry{})
}

// StopTracingAtCurrentTime closes the session, files it under the trace
// index, and writes out the spans still pending at session end.
func (t *DBTracer) StopTracingAtCurrentTime() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.isTracingFlag = false
	t.sessionEndTime = t.timeTeller.CurrentTime()

	traceIndex := sessionTableEntry{
		TableName:    t.currentTableName,
		SessionStart: uint64(t.sessionStartTime),
		SessionEnd:   uint64(t.sessionEndTime),
	}
	t.backend.InsertData("trace", traceIndex)

	t.writeOngoingSpans()

	t.tracingSpans = make(map[string]Span)
	t.backend.Flush()
}

// Terminate terminates the tracer.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingSpans = nil
	t.backend.Flush()
}

func (t *DBTracer) writeSpanToDB(span Span) {
	entry := spanTableEntry{
		ID:        span.ID,
		Kind:      span.Kind,
		What:      span.What,
		Processor: span.Processor,
		Handle:    int64(span.Handle),
		StartTime: uint64(span.StartTime),
		EndTime:   uint64(span.EndTime),
	}
	t.backend.InsertData(t.currentTableName, entry)
}

// writeOngoingSpans records the spans that were still pending when the
// session closed, ended at session end with their pending marker intact.
func (t *DBTracer) writeOngoingSpans() {
	if t.currentTableName == "" {
		return
	}

	for _, span := range t.tracingSpans {
		if span.StartTime <= t.sessionEndTime {
			tempSpan := span
			tempSpan.EndTime = t.sessionEndTime
			t.writeSpanToDB(tempSpan)
		}
	}
}
