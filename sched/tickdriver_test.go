package sched

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("TickDriver", func() {
	var (
		mockCtrl *gomock.Controller
		inv      *MockInvoker
		registry *Registry
		driver   *TickDriver
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		inv = NewMockInvoker(mockCtrl)
		registry = NewRegistry(inv).WithSeed(1)
		driver = NewTickDriver(registry, time.Millisecond)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should raise sub-millisecond periods to one millisecond", func() {
		d := NewTickDriver(registry, 0)

		Expect(d.period).To(Equal(time.Millisecond))
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- driver.Run(ctx)
		}()

		cancel()

		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("should convert elapsed wall time into logical milliseconds", func() {
		driver.last = time.Now().Add(-50 * time.Millisecond)

		driver.tick()

		Expect(registry.CurrentTime()).To(BeNumerically(">=", 50))
	})

	It("should not advance while paused", func() {
		driver.Pause()
		driver.last = time.Now().Add(-50 * time.Millisecond)

		driver.tick()

		Expect(registry.CurrentTime()).To(Equal(VTimeInMS(0)))
		Expect(driver.Paused()).To(BeTrue())
	})

	It("should not replay wall time spent paused", func() {
		driver.Pause()
		driver.last = time.Now().Add(-200 * time.Millisecond)

		driver.Continue()
		driver.tick()

		Expect(registry.CurrentTime()).To(BeNumerically("<", 100))
		Expect(driver.Paused()).To(BeFalse())
	})
})
