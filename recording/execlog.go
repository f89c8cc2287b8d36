package recording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfo is one key/value fact about the current program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// An ExecLogger records facts about the current run, such as the start
// time and the command line, into the exec_info table of a Recorder.
type ExecLogger struct {
	tableName string
	recorder  Recorder
	entries   []ExecInfo
}

// NewExecLogger creates an ExecLogger writing through the given recorder.
func NewExecLogger(recorder Recorder) *ExecLogger {
	e := &ExecLogger{
		tableName: "exec_info",
		recorder:  recorder,
		entries:   []ExecInfo{},
	}

	e.recorder.CreateTable(e.tableName, ExecInfo{})

	return e
}

// Start collects the facts known at startup.
func (e *ExecLogger) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, ExecInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, ExecInfo{"Command", cmd})

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}

	cwd := filepath.Dir(ex)
	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the collected facts along with the exit time and flushes the
// recorder.
func (e *ExecLogger) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	endValue := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tableName, ExecInfo{"End Time", endValue})

	e.entries = nil

	e.recorder.Flush()
}
