package scheduling

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/schedlab/kairos/sched"
)

type captureInvoker struct {
	delays []sched.VTimeInMS
}

func (i *captureInvoker) Invoke(
	_ sched.Handle,
	delayUsed sched.VTimeInMS,
	_ int,
	_ sched.Owner,
) {
	i.delays = append(i.delays, delayUsed)
}

func (i *captureInvoker) Release(sched.Handle) {}
func (i *captureInvoker) SystemLive() bool     { return true }
func (i *captureInvoker) HasContext() bool     { return true }

type stubOwner string

func (o stubOwner) Name() string { return string(o) }

var _ = Describe("System", func() {
	It("should build a working system", func() {
		inv := &captureInvoker{}
		system := MakeBuilder().
			WithInvoker(inv).
			WithoutRecording().
			Build()
		defer system.Terminate()

		Expect(system.ID()).ToNot(BeEmpty())
		Expect(system.GetTickDriver()).ToNot(BeNil())
		Expect(system.GetRecorder()).To(BeNil())
		Expect(system.GetMonitor()).To(BeNil())

		p := system.GetRegistry().NewProcessor(stubOwner("npc"))
		p.Schedule(7, 100, 100, 1)
		system.GetRegistry().AdvanceAll(100)

		Expect(inv.delays).To(Equal([]sched.VTimeInMS{100}))
	})

	It("should draw the same delays for the same seed", func() {
		run := func() []sched.VTimeInMS {
			inv := &captureInvoker{}
			system := MakeBuilder().
				WithInvoker(inv).
				WithoutRecording().
				WithSeed(42).
				Build()
			defer system.Terminate()

			p := system.GetRegistry().NewProcessor(stubOwner("npc"))
			for h := sched.Handle(1); h <= 5; h++ {
				p.Schedule(h, 100, 500, 1)
			}
			system.GetRegistry().AdvanceAll(500)

			return inv.delays
		}

		Expect(run()).To(Equal(run()))
	})

	It("should record a run into a SQLite file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run")

		system := MakeBuilder().
			WithInvoker(&captureInvoker{}).
			WithRecorderPath(path).
			Build()

		Expect(system.GetRecorder()).ToNot(BeNil())
		Expect(system.GetDBTracer()).ToNot(BeNil())

		system.Terminate()

		_, err := os.Stat(path + ".sqlite3")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should refuse to build without an invoker", func() {
		Expect(func() {
			MakeBuilder().WithoutRecording().Build()
		}).To(Panic())
	})

	It("should refuse a monitor port without monitoring", func() {
		Expect(func() {
			MakeBuilder().
				WithInvoker(&captureInvoker{}).
				WithoutRecording().
				WithMonitorPort(8080).
				Build()
		}).To(Panic())
	})

	It("should refuse recorder output when recording is disabled", func() {
		Expect(func() {
			MakeBuilder().
				WithInvoker(&captureInvoker{}).
				WithoutRecording().
				WithRecorderPath("somewhere").
				Build()
		}).To(Panic())
	})
})
