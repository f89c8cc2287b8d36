package tracing

import (
	"fmt"
	"reflect"

	"github.com/schedlab/kairos/sched"
)

// CollectTrace lets the tracer collect spans from every processor of the
// registry.
func CollectTrace(registry *sched.Registry, tracer Tracer) {
	for _, hook := range registry.Hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"registry already has tracer %s",
				reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	registry.AcceptHook(&h)
}

// A traceHook is a hook that converts scheduler activity into spans.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx sched.HookCtx) {
	info, ok := ctx.Item.(sched.EventInfo)
	if !ok {
		return
	}

	switch ctx.Pos {
	case sched.HookPosSchedule:
		h.t.StartSpan(Span{
			ID:          info.ID,
			Handle:      info.Handle,
			Kind:        "event",
			What:        "pending",
			Processor:   processorName(ctx.Domain),
			RepeatsLeft: info.RepeatsLeft,
			Detail:      info,
		})
	case sched.HookPosBeforeInvoke:
		h.t.StepSpan(Span{
			ID:    info.ID,
			Steps: []SpanStep{{What: "invoke"}},
		})
	case sched.HookPosDrop:
		reason, _ := ctx.Detail.(sched.DropReason)
		h.t.EndSpan(Span{
			ID:   info.ID,
			What: string(reason),
		})
	}
}

func processorName(domain sched.Hookable) string {
	named, ok := domain.(sched.Named)
	if !ok {
		return ""
	}

	return named.Name()
}
