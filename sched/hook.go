package sched

import "log"

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookPosSchedule triggers after an event is inserted by Schedule.
var HookPosSchedule = &HookPos{Name: "Schedule"}

// HookPosBeforeInvoke triggers before a due event's callback runs.
var HookPosBeforeInvoke = &HookPos{Name: "BeforeInvoke"}

// HookPosAfterInvoke triggers after a due event's callback returns.
var HookPosAfterInvoke = &HookPos{Name: "AfterInvoke"}

// HookPosSkip triggers when a due event is popped without execution because
// its state is not StateRun.
var HookPosSkip = &HookPos{Name: "Skip"}

// HookPosDrop triggers when an event leaves its processor permanently. The
// context detail carries the DropReason.
var HookPosDrop = &HookPos{Name: "Drop"}

// DropReason tells a Drop hook why the event left its processor.
type DropReason string

// The reasons an event can leave a processor.
const (
	DropExpired  DropReason = "expired"
	DropAborted  DropReason = "aborted"
	DropErased   DropReason = "erased"
	DropDrained  DropReason = "drained"
	DropReplaced DropReason = "replaced"
)

// HookCtx is the context that holds all the information about the site that
// a hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hook is a short piece of program invoked by a hookable object. Hooks fire
// on the goroutine performing the scheduling operation; they must not call
// back into the scheduler.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// Hookable defines an object that accepts Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)
}

// A HookableBase provides utility functions for the types that implement
// the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the registered hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}

// A LogHook is a hook responsible for writing scheduler activity to a log.
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks.
type LogHookBase struct {
	*log.Logger
}
