package recording

// This file verifies that both backends implement the Recorder interface.
// If this compiles, the interfaces are correctly implemented.

var _ Recorder = (*ClickHouseRecorder)(nil)
var _ Recorder = (*sqliteWriter)(nil)
