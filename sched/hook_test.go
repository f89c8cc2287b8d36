package sched

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Lifecycle hooks", func() {
	var (
		mockCtrl *gomock.Controller
		inv      *MockInvoker
		owner    *MockOwner
		registry *Registry
		proc     *Processor

		positions []*HookPos
		items     []interface{}
		details   []interface{}
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		inv = NewMockInvoker(mockCtrl)
		inv.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
		inv.EXPECT().Release(gomock.Any()).AnyTimes()
		inv.EXPECT().SystemLive().Return(true).AnyTimes()
		inv.EXPECT().HasContext().Return(true).AnyTimes()

		owner = NewMockOwner(mockCtrl)
		owner.EXPECT().Name().Return("dragon").AnyTimes()

		registry = NewRegistry(inv).WithSeed(1)
		proc = registry.NewProcessor(owner)

		positions = nil
		items = nil
		details = nil

		hook := NewMockHook(mockCtrl)
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx HookCtx) {
				positions = append(positions, ctx.Pos)
				items = append(items, ctx.Item)
				details = append(details, ctx.Detail)
			}).
			AnyTimes()
		proc.AcceptHook(hook)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should wrap a firing in schedule, invoke, and drop hooks", func() {
		proc.Schedule(7, 100, 100, 1)
		proc.Advance(100)

		Expect(positions).To(Equal([]*HookPos{
			HookPosSchedule,
			HookPosBeforeInvoke,
			HookPosAfterInvoke,
			HookPosDrop,
		}))
		Expect(details[3]).To(Equal(DropExpired))
	})

	It("should report a skip and an aborted drop for a cancelled event", func() {
		proc.Schedule(7, 100, 100, 1)
		proc.Cancel(7)
		proc.Advance(100)

		Expect(positions).To(Equal([]*HookPos{
			HookPosSchedule,
			HookPosSkip,
			HookPosDrop,
		}))
		Expect(details[2]).To(Equal(DropAborted))
	})

	It("should report an erased drop without a skip", func() {
		proc.Schedule(7, 100, 100, 1)
		proc.SetState(7, StateErased)
		proc.Advance(100)

		Expect(positions).To(Equal([]*HookPos{
			HookPosSchedule,
			HookPosDrop,
		}))
		Expect(details[1]).To(Equal(DropErased))
	})

	It("should report a replaced drop before the new schedule", func() {
		proc.Schedule(7, 100, 100, 1)
		proc.Schedule(7, 200, 200, 1)

		Expect(positions).To(Equal([]*HookPos{
			HookPosSchedule,
			HookPosDrop,
			HookPosSchedule,
		}))
		Expect(details[1]).To(Equal(DropReplaced))
	})

	It("should report drained drops on destroy", func() {
		proc.Schedule(7, 100, 100, 1)
		proc.Schedule(8, 200, 200, 1)
		proc.Destroy()

		Expect(positions).To(Equal([]*HookPos{
			HookPosSchedule,
			HookPosSchedule,
			HookPosDrop,
			HookPosDrop,
		}))
		Expect(details[2]).To(Equal(DropDrained))
		Expect(details[3]).To(Equal(DropDrained))
	})

	It("should observe every processor of the registry", func() {
		other := registry.NewProcessor(owner)
		other.Schedule(9, 100, 100, 1)

		Expect(positions).To(Equal([]*HookPos{HookPosSchedule}))
	})

	It("should hand hooks a snapshot of the firing instance", func() {
		proc.Schedule(7, 100, 100, 3)
		proc.Advance(100)

		var before EventInfo
		for i, pos := range positions {
			if pos == HookPosBeforeInvoke {
				before = items[i].(EventInfo)
			}
		}

		Expect(before.Handle).To(Equal(Handle(7)))
		Expect(before.RepeatsLeft).To(Equal(3))
		Expect(before.DueAt).To(Equal(VTimeInMS(100)))
	})
})
