package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/h8dma/hooking"
)

// CollectTrace attaches tracers to a domain. A domain carries at most one
// trace hook; later calls add their tracers to it. Attaching the same tracer
// twice panics.
func CollectTrace(domain hooking.NamedHookable, tracers ...Tracer) {
	h := traceHookOf(domain)
	if h == nil {
		h = &traceHook{where: domain.Name()}
		domain.AcceptHook(h)
	}

	for _, t := range tracers {
		if h.has(t) {
			panic(fmt.Sprintf("domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(t)))
		}

		h.tracers = append(h.tracers, t)
	}
}

func traceHookOf(domain hooking.Hookable) *traceHook {
	for _, hook := range domain.Hooks() {
		if h, ok := hook.(*traceHook); ok {
			return h
		}
	}

	return nil
}

// traceHook fans the task events of one domain out to its tracers. Step and
// end events are stamped with the domain name so that tracers can group
// them without remembering the start.
type traceHook struct {
	where   string
	tracers []Tracer
}

func (h *traceHook) has(t Tracer) bool {
	for _, existing := range h.tracers {
		if existing == t {
			return true
		}
	}

	return false
}

func (h *traceHook) Func(ctx hooking.HookCtx) {
	task, ok := ctx.Item.(Task)
	if !ok {
		return
	}

	if task.Where == "" {
		task.Where = h.where
	}

	for _, t := range h.tracers {
		switch ctx.Pos {
		case HookPosTaskStart:
			t.StartTask(task)
		case HookPosTaskStep:
			t.StepTask(task)
		case HookPosTaskEnd:
			t.EndTask(task)
		}
	}
}
