package monitoring

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/schedlab/kairos/sched"
)

type silentInvoker struct{}

func (silentInvoker) Invoke(sched.Handle, sched.VTimeInMS, int, sched.Owner) {}
func (silentInvoker) Release(sched.Handle)                                   {}
func (silentInvoker) SystemLive() bool                                       { return true }
func (silentInvoker) HasContext() bool                                       { return true }

type stubOwner string

func (o stubOwner) Name() string { return string(o) }

var _ = Describe("Monitor", func() {
	var (
		m        *Monitor
		registry *sched.Registry
	)

	BeforeEach(func() {
		registry = sched.NewRegistry(silentInvoker{})

		m = NewMonitor()
		m.RegisterRegistry(registry)
	})

	It("should report the current logical time", func() {
		registry.AdvanceAll(250)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/now", nil)
		m.now(w, r)

		Expect(w.Body.String()).To(Equal(`{"now":250}`))
	})

	It("should list processors with the global one last", func() {
		registry.NewProcessor(stubOwner("npc"))

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/processors", nil)
		m.listProcessors(w, r)

		Expect(w.Body.String()).To(Equal(`["npc","global"]`))
	})

	It("should describe a processor with its pending events", func() {
		p := registry.NewProcessor(stubOwner("npc"))
		p.Schedule(7, 100, 100, 2)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/processor/npc", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "npc"})
		m.listProcessorDetails(w, r)

		rsp := processorRsp{}
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Name).To(Equal("npc"))
		Expect(rsp.Pending).To(Equal(1))
		Expect(rsp.Events).To(HaveLen(1))
		Expect(rsp.Events[0].Handle).To(Equal(sched.Handle(7)))
		Expect(rsp.Events[0].State).To(Equal("run"))
	})

	It("should answer 404 for an unknown processor", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/processor/ghost", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "ghost"})
		m.listProcessorDetails(w, r)

		Expect(w.Code).To(Equal(404))
	})

	It("should set the state of one event by handle", func() {
		p := registry.NewProcessor(stubOwner("npc"))
		p.Schedule(7, 100, 100, 1)
		p.Schedule(8, 200, 200, 1)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/setstate?state=abort&handle=7", nil)
		m.setState(w, r)

		Expect(w.Code).To(Equal(200))

		states := map[sched.Handle]string{}
		for _, info := range p.PendingEvents() {
			states[info.Handle] = info.State
		}
		Expect(states[7]).To(Equal("abort"))
		Expect(states[8]).To(Equal("run"))
	})

	It("should broadcast a state to every pending event", func() {
		p := registry.NewProcessor(stubOwner("npc"))
		p.Schedule(7, 100, 100, 1)
		p.Schedule(8, 200, 200, 1)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/setstate?state=abort", nil)
		m.setState(w, r)

		Expect(w.Code).To(Equal(200))

		for _, info := range p.PendingEvents() {
			Expect(info.State).To(Equal("abort"))
		}
	})

	It("should reject an unknown state", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/setstate?state=frozen", nil)
		m.setState(w, r)

		Expect(w.Code).To(Equal(400))
	})

	It("should reject a malformed handle", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/setstate?state=abort&handle=seven", nil)
		m.setState(w, r)

		Expect(w.Code).To(Equal(400))
	})

	It("should list processors by pending count", func() {
		npc := registry.NewProcessor(stubOwner("npc"))
		boss := registry.NewProcessor(stubOwner("boss"))
		npc.Schedule(1, 100, 100, 1)
		npc.Schedule(2, 100, 100, 1)
		boss.Schedule(3, 100, 100, 1)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/pending", nil)
		m.listPending(w, r)

		var rsps []pendingRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsps)).To(Succeed())
		Expect(rsps).To(HaveLen(3))
		Expect(rsps[0]).To(Equal(pendingRsp{Processor: "npc", Pending: 2}))
		Expect(rsps[1]).To(Equal(pendingRsp{Processor: "boss", Pending: 1}))
		Expect(rsps[2]).To(Equal(pendingRsp{Processor: "global", Pending: 0}))
	})

	It("should clamp the pending page to the available rows", func() {
		rsps := []pendingRsp{
			{Processor: "a", Pending: 3},
			{Processor: "b", Pending: 2},
			{Processor: "c", Pending: 1},
		}

		Expect(clampPage(rsps, 0, 0)).To(HaveLen(3))
		Expect(clampPage(rsps, 2, 0)).To(HaveLen(2))
		Expect(clampPage(rsps, 2, 2)).To(HaveLen(1))
		Expect(clampPage(rsps, 2, 5)).To(BeEmpty())
	})

	It("should reject malformed paging parameters", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/pending?limit=many", nil)
		m.listPending(w, r)

		Expect(w.Code).To(Equal(400))
	})

	It("should create and complete progress bars", func() {
		bar := m.CreateProgressBar("demo firings", 100)

		Expect(m.progressBars).To(HaveLen(1))
		Expect(bar.ID).ToNot(BeEmpty())

		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)
		bar.IncrementFinished(1)

		Expect(bar.InProgress).To(Equal(uint64(1)))
		Expect(bar.Finished).To(Equal(uint64(4)))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})
})
