package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/schedlab/kairos/sched"
)

var _ = Describe("AverageTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		t          *AverageTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		t = NewAverageTimeTracer(timeTeller, AllSpans)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should track average lifetime, one event", func() {
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(100))
		t.StartSpan(pendingSpan("1"))

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(250))
		t.EndSpan(Span{ID: "1", What: "expired"})

		Expect(t.AverageTime()).To(Equal(150.0))
		Expect(t.TotalCount()).To(Equal(uint64(1)))
	})

	It("should track average lifetime, two events", func() {
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(100))
		t.StartSpan(pendingSpan("1"))
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(200))
		t.EndSpan(Span{ID: "1", What: "expired"})

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(200))
		t.StartSpan(pendingSpan("2"))
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(500))
		t.EndSpan(Span{ID: "2", What: "expired"})

		Expect(t.AverageTime()).To(Equal(200.0))
		Expect(t.TotalCount()).To(Equal(uint64(2)))
	})

	It("should only count events the filter keeps", func() {
		t = NewAverageTimeTracer(timeTeller, SpansEndedBy(sched.DropAborted))

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(100))
		t.StartSpan(pendingSpan("1"))
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(200))
		t.EndSpan(Span{ID: "1", What: "expired"})

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(300))
		t.StartSpan(pendingSpan("2"))
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(340))
		t.EndSpan(Span{ID: "2", What: "aborted"})

		Expect(t.AverageTime()).To(Equal(40.0))
		Expect(t.TotalCount()).To(Equal(uint64(1)))
	})

	It("should ignore the end of an unknown span", func() {
		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(200))
		t.EndSpan(Span{ID: "ghost", What: "expired"})

		Expect(t.TotalCount()).To(Equal(uint64(0)))
	})
})
