package hooking

import (
	"fmt"
	"log"
)

// A LogHook writes every hook invocation it receives as one log line.
type LogHook struct {
	*log.Logger

	filter func(ctx HookCtx) bool
}

// NewLogHook creates a LogHook that writes to the given logger.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// WithFilter limits the hook to the invocations for which filter returns
// true.
func (h *LogHook) WithFilter(filter func(ctx HookCtx) bool) *LogHook {
	h.filter = filter
	return h
}

// Func writes the hook context into the logger.
func (h *LogHook) Func(ctx HookCtx) {
	if h.filter != nil && !h.filter(ctx) {
		return
	}

	where := "-"
	if named, ok := ctx.Domain.(Named); ok {
		where = named.Name()
	}

	pos := "-"
	if ctx.Pos != nil {
		pos = ctx.Pos.Name
	}

	if ctx.Detail == nil {
		h.Printf("%s %s %v", where, pos, ctx.Item)
		return
	}

	h.Printf("%s %s %v %s", where, pos, ctx.Item, fmt.Sprint(ctx.Detail))
}
