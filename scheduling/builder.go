package scheduling

import (
	"time"

	"github.com/rs/xid"

	"github.com/schedlab/kairos/monitoring"
	"github.com/schedlab/kairos/recording"
	"github.com/schedlab/kairos/sched"
	"github.com/schedlab/kairos/tracing"
)

// Builder can be used to build a scheduling system.
type Builder struct {
	inv sched.Invoker

	monitorOn   bool
	monitorPort int

	recordingOn    bool
	recorderPath   string
	clickHouseConn string

	seed    int64
	seedSet bool

	tickResolution time.Duration
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		recordingOn:    true,
		tickResolution: 10 * time.Millisecond,
	}
}

// WithInvoker sets the invoker that delivers callbacks to the host
// runtime. An invoker is required.
func (b Builder) WithInvoker(inv sched.Invoker) Builder {
	b.inv = inv
	return b
}

// WithMonitor starts a monitoring server when the system is built.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecorderPath sets the SQLite file, without extension, that the
// recorder writes to.
func (b Builder) WithRecorderPath(path string) Builder {
	b.recorderPath = path
	return b
}

// WithClickHouse directs recording to a ClickHouse server instead of a
// SQLite file. The connection string looks like
// "clickhouse://localhost:9000/kairos?username=default&password=secret".
func (b Builder) WithClickHouse(connStr string) Builder {
	b.clickHouseConn = connStr
	return b
}

// WithoutRecording disables the recorder and the database tracer.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithSeed pins the delay randomizer, making randomized delays
// reproducible across runs. Apply it before any event is scheduled.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seedSet = true
	return b
}

// WithTickResolution sets the period of the tick driver.
func (b Builder) WithTickResolution(resolution time.Duration) Builder {
	b.tickResolution = resolution
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.inv == nil {
		panic("an invoker is required to build a scheduling system")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && (b.recorderPath != "" || b.clickHouseConn != "") {
		panic("recorder output cannot be set when recording is disabled")
	}

	if b.recorderPath != "" && b.clickHouseConn != "" {
		panic("recorder path cannot be set when recording goes to ClickHouse")
	}
}

// Build builds the scheduling system.
func (b Builder) Build() *System {
	b.parametersMustBeValid()

	s := &System{}
	s.id = xid.New().String()

	s.registry = sched.NewRegistry(b.inv)
	if b.seedSet {
		s.registry.WithSeed(b.seed)
	}

	s.tickDriver = sched.NewTickDriver(s.registry, b.tickResolution)

	if b.recordingOn {
		b.buildRecording(s)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterRegistry(s.registry)
		s.monitor.RegisterDriver(s.tickDriver)
		s.monitor.StartServer()
	}

	return s
}

func (b Builder) buildRecording(s *System) {
	if b.clickHouseConn != "" {
		s.recorder = recording.NewRecorderWithConfig(recording.RecorderConfig{
			Type:    "clickhouse",
			ConnStr: b.clickHouseConn,
		})
	} else {
		path := b.recorderPath
		if path == "" {
			path = "kairos_run_" + s.id
		}

		s.recorder = recording.New(path)

		// The ClickHouse backend keeps its own exec logger.
		s.execLogger = recording.NewExecLogger(s.recorder)
		s.execLogger.Start()
	}

	s.dbTracer = tracing.NewDBTracer(s.registry, s.recorder)
	tracing.CollectTrace(s.registry, s.dbTracer)
}
