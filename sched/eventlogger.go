package sched

import "log"

// EventLogger is a hook that prints scheduler activity.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write into the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger
	return h
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	info, ok := ctx.Item.(EventInfo)
	if !ok {
		return
	}

	name := "global"
	if named, ok := ctx.Domain.(Named); ok {
		name = named.Name()
	}

	switch ctx.Pos {
	case HookPosBeforeInvoke:
		h.Logger.Printf("%d, handle %d -> %s, repeats left %d",
			info.DueAt, info.Handle, name, info.RepeatsLeft)
	case HookPosDrop:
		h.Logger.Printf("%d, handle %d dropped from %s, %s",
			info.DueAt, info.Handle, name, ctx.Detail)
	}
}
