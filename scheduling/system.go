// Package scheduling assembles a complete scheduler from its parts: the
// registry, the tick driver that feeds it, and the optional recording and
// monitoring services around them.
package scheduling

import (
	"github.com/schedlab/kairos/monitoring"
	"github.com/schedlab/kairos/recording"
	"github.com/schedlab/kairos/sched"
	"github.com/schedlab/kairos/tracing"
)

// A System holds the pieces of one running scheduler.
type System struct {
	id string

	registry   *sched.Registry
	tickDriver *sched.TickDriver

	recorder   recording.Recorder
	execLogger *recording.ExecLogger
	dbTracer   *tracing.DBTracer
	monitor    *monitoring.Monitor
}

// ID returns the unique ID of the system.
func (s *System) ID() string {
	return s.id
}

// GetRegistry returns the registry used in the system.
func (s *System) GetRegistry() *sched.Registry {
	return s.registry
}

// GetTickDriver returns the tick driver that advances the registry.
func (s *System) GetTickDriver() *sched.TickDriver {
	return s.tickDriver
}

// GetRecorder returns the recorder used in the system, or nil when
// recording is disabled.
func (s *System) GetRecorder() recording.Recorder {
	return s.recorder
}

// GetDBTracer returns the database tracer used in the system, or nil when
// recording is disabled.
func (s *System) GetDBTracer() *tracing.DBTracer {
	return s.dbTracer
}

// GetMonitor returns the monitor used in the system, or nil when
// monitoring is disabled.
func (s *System) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Terminate shuts the system down. Pending events are drained with their
// handles released exactly once, no further callback fires, and recorded
// data is flushed to its backend.
func (s *System) Terminate() {
	s.registry.Shutdown()

	if s.dbTracer != nil {
		s.dbTracer.Terminate()
	}

	if s.execLogger != nil {
		s.execLogger.End()
	}

	if s.recorder != nil {
		err := s.recorder.Close()
		if err != nil {
			panic(err)
		}
	}
}
