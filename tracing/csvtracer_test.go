package tracing

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/schedlab/kairos/sched"
)

var _ = Describe("CSVTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		path       string
		tracer     *CSVTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		path = filepath.Join(GinkgoT().TempDir(), "trace")
		tracer = NewCSVTracer(timeTeller, path)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write finished spans to the file", func() {
		tracer.Init()

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(100))
		tracer.StartSpan(pendingSpan("s1"))

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(250))
		tracer.EndSpan(Span{ID: "s1", What: "expired"})

		tracer.Flush()

		data, err := os.ReadFile(path + ".csv")
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(Equal("ID, Handle, Kind, What, Processor, Start, End"))
		Expect(lines[1]).To(Equal("s1, 42, event, expired, npc, 100, 250"))
	})

	It("should not write spans that never end", func() {
		tracer.Init()

		timeTeller.EXPECT().CurrentTime().Return(sched.VTimeInMS(100))
		tracer.StartSpan(pendingSpan("s1"))

		tracer.Flush()

		data, err := os.ReadFile(path + ".csv")
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(1))
	})

	It("should refuse to overwrite an existing file", func() {
		Expect(os.WriteFile(path+".csv", []byte("x"), 0600)).To(Succeed())

		Expect(func() { tracer.Init() }).To(Panic())
	})
})
