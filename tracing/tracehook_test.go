package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/schedlab/kairos/sched"
)

type silentInvoker struct{}

func (silentInvoker) Invoke(sched.Handle, sched.VTimeInMS, int, sched.Owner) {}
func (silentInvoker) Release(sched.Handle)                                   {}
func (silentInvoker) SystemLive() bool                                       { return true }
func (silentInvoker) HasContext() bool                                       { return true }

type stubOwner string

func (o stubOwner) Name() string { return string(o) }

var _ = Describe("TraceHook", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer
		registry *sched.Registry
		proc     *sched.Processor
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)

		registry = sched.NewRegistry(silentInvoker{})
		proc = registry.NewProcessor(stubOwner("npc"))

		CollectTrace(registry, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start a span when an event is scheduled", func() {
		var span Span
		tracer.EXPECT().StartSpan(gomock.Any()).Do(func(s Span) { span = s })

		proc.Schedule(7, 100, 100, 2)

		Expect(span.ID).NotTo(BeEmpty())
		Expect(span.Handle).To(Equal(sched.Handle(7)))
		Expect(span.Kind).To(Equal("event"))
		Expect(span.What).To(Equal("pending"))
		Expect(span.Processor).To(Equal("npc"))
		Expect(span.RepeatsLeft).To(Equal(2))
	})

	It("should step and end a span across the last firing", func() {
		var started, stepped, ended Span
		tracer.EXPECT().StartSpan(gomock.Any()).Do(func(s Span) { started = s })
		tracer.EXPECT().StepSpan(gomock.Any()).Do(func(s Span) { stepped = s })
		tracer.EXPECT().EndSpan(gomock.Any()).Do(func(s Span) { ended = s })

		proc.Schedule(7, 100, 100, 1)
		registry.AdvanceAll(100)

		Expect(stepped.ID).To(Equal(started.ID))
		Expect(stepped.Steps).To(HaveLen(1))
		Expect(stepped.Steps[0].What).To(Equal("invoke"))
		Expect(ended.ID).To(Equal(started.ID))
		Expect(ended.What).To(Equal("expired"))
	})

	It("should step once per firing of a repeating event", func() {
		steps := 0
		tracer.EXPECT().StartSpan(gomock.Any())
		tracer.EXPECT().StepSpan(gomock.Any()).Do(func(Span) { steps++ }).Times(3)
		tracer.EXPECT().EndSpan(gomock.Any())

		proc.Schedule(7, 100, 100, 3)
		for i := 0; i < 3; i++ {
			registry.AdvanceAll(100)
		}

		Expect(steps).To(Equal(3))
	})

	It("should end a cancelled span with the abort reason", func() {
		var ended Span
		tracer.EXPECT().StartSpan(gomock.Any())
		tracer.EXPECT().EndSpan(gomock.Any()).Do(func(s Span) { ended = s })

		proc.Schedule(7, 100, 100, 1)
		proc.Cancel(7)
		registry.AdvanceAll(100)

		Expect(ended.What).To(Equal("aborted"))
	})

	It("should end a drained span with the drain reason", func() {
		var ended Span
		tracer.EXPECT().StartSpan(gomock.Any())
		tracer.EXPECT().EndSpan(gomock.Any()).Do(func(s Span) { ended = s })

		proc.Schedule(7, 100, 100, 1)
		proc.Destroy()

		Expect(ended.What).To(Equal("drained"))
	})

	It("should refuse to attach the same tracer twice", func() {
		Expect(func() { CollectTrace(registry, tracer) }).To(Panic())
	})
})
