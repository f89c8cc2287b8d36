// Package monitoring turns a running scheduler into a web server, so the
// live processors can be inspected and controlled from a browser or from
// scripts while callbacks keep firing.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/schedlab/kairos/monitoring/web"
	"github.com/schedlab/kairos/sched"
)

// Monitor exposes a registry's processors over HTTP. It can list pending
// events, flip event states, and pause the tick driver feeding the
// registry.
type Monitor struct {
	registry   *sched.Registry
	driver     *sched.TickDriver
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterRegistry registers the registry whose processors are monitored.
func (m *Monitor) RegisterRegistry(r *sched.Registry) {
	m.registry = r
}

// RegisterDriver registers the tick driver that feeds the registry, so the
// pause and continue endpoints can reach it.
func (m *Monitor) RegisterDriver(d *sched.TickDriver) {
	m.driver = d
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sched.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server with a custom port if
// wanted.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/pause", m.pauseDriver)
	r.HandleFunc("/api/continue", m.continueDriver)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/processors", m.listProcessors)
	r.HandleFunc("/api/processor/{name}", m.listProcessorDetails)
	r.HandleFunc("/api/processor/{name}/raw", m.listProcessorRaw)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/setstate", m.setState)
	r.HandleFunc("/api/pending", m.listPending)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(
		os.Stderr,
		"Monitoring scheduler with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) pauseDriver(w http.ResponseWriter, _ *http.Request) {
	if m.driver == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "No tick driver registered")
		return
	}

	m.driver.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueDriver(w http.ResponseWriter, _ *http.Request) {
	if m.driver == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "No tick driver registered")
		return
	}

	m.driver.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.registry.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) listProcessors(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, p := range m.registry.Processors() {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", p.Name())
	}
	fmt.Fprint(w, "]")
}

type processorRsp struct {
	Name    string            `json:"name"`
	Now     sched.VTimeInMS   `json:"now"`
	Pending int               `json:"pending"`
	Events  []sched.EventInfo `json:"events"`
}

func (m *Monitor) listProcessorDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	processor := m.findProcessorOr404(w, name)
	if processor == nil {
		return
	}

	rsp := processorRsp{
		Name:    processor.Name(),
		Now:     processor.CurrentTime(),
		Pending: processor.Len(),
		Events:  processor.PendingEvents(),
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProcessorRaw(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	processor := m.findProcessorOr404(w, name)
	if processor == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(processor)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	ProcName  string `json:"proc_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		dieOnErr(err)
	}

	fields := strings.Split(req.FieldName, ".")

	processor := m.findProcessorOr404(w, req.ProcName)
	if processor == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(processor)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(fields)
	dieOnErr(err)

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) setState(w http.ResponseWriter, r *http.Request) {
	stateStr := r.URL.Query().Get("state")
	state, err := sched.ParseEventState(stateStr)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	handleStr := r.URL.Query().Get("handle")
	if handleStr == "" {
		m.registry.SetStates(state)
		w.WriteHeader(http.StatusOK)
		return
	}

	handle, err := strconv.ParseInt(handleStr, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	m.registry.SetState(sched.Handle(handle), state)
	w.WriteHeader(http.StatusOK)
}

type pendingRsp struct {
	Processor string `json:"processor"`
	Pending   int    `json:"pending"`
}

func (m *Monitor) listPending(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	procs := m.registry.Processors()
	rsps := make([]pendingRsp, 0, len(procs))
	for _, p := range procs {
		rsps = append(rsps, pendingRsp{Processor: p.Name(), Pending: p.Len()})
	}

	sort.Slice(rsps, func(i, j int) bool {
		if rsps[i].Pending != rsps[j].Pending {
			return rsps[i].Pending > rsps[j].Pending
		}

		return rsps[i].Processor < rsps[j].Processor
	})

	rsps = clampPage(rsps, limit, offset)

	bytes, err := json.Marshal(rsps)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func pageParseParams(r *http.Request) (limit, offset int, err error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "0"
	}
	limit, err = strconv.Atoi(limitStr)
	if err != nil {
		return 0, 0, err
	}

	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}
	offset, err = strconv.Atoi(offsetStr)
	if err != nil {
		return limit, 0, err
	}

	return limit, offset, nil
}

func clampPage(rsps []pendingRsp, limit, offset int) []pendingRsp {
	if offset >= len(rsps) {
		return nil
	}

	rsps = rsps[offset:]

	if limit > 0 && limit < len(rsps) {
		rsps = rsps[:limit]
	}

	return rsps
}

func (m *Monitor) findProcessorOr404(
	w http.ResponseWriter,
	name string,
) *sched.Processor {
	var processor *sched.Processor
	for _, p := range m.registry.Processors() {
		if p.Name() == name {
			processor = p
		}
	}

	if processor == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Processor not found"))
		dieOnErr(err)
	}

	return processor
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bytes, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
