package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Named entry types pair a hook implementation with the name captured at
// registration time. This avoids type-asserting back to Hook inside the
// emit methods.
type firedEntry struct {
	name string
	hook ScheduleFired
}

type retryingEntry struct {
	name string
	hook ScheduleRetrying
}

type completedEntry struct {
	name string
	hook ScheduleCompleted
}

type failedEntry struct {
	name string
	hook ScheduleFailed
}

type terminalEntry struct {
	name string
	hook ScheduleTerminal
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	fired     []firedEntry
	retrying  []retryingEntry
	completed []completedEntry
	failed    []failedEntry
	terminal  []terminalEntry
	shutdown  []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if e, ok := h.(ScheduleFired); ok {
		r.fired = append(r.fired, firedEntry{name, e})
	}
	if e, ok := h.(ScheduleRetrying); ok {
		r.retrying = append(r.retrying, retryingEntry{name, e})
	}
	if e, ok := h.(ScheduleCompleted); ok {
		r.completed = append(r.completed, completedEntry{name, e})
	}
	if e, ok := h.(ScheduleFailed); ok {
		r.failed = append(r.failed, failedEntry{name, e})
	}
	if e, ok := h.(ScheduleTerminal); ok {
		r.terminal = append(r.terminal, terminalEntry{name, e})
	}
	if e, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, e})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// EmitScheduleFired notifies all hooks that implement ScheduleFired.
func (r *Registry) EmitScheduleFired(ctx context.Context, s *schedule.Schedule, elapsed time.Duration) {
	for _, e := range r.fired {
		if err := e.hook.OnScheduleFired(ctx, s, elapsed); err != nil {
			r.logHookError("OnScheduleFired", e.name, err)
		}
	}
}

// EmitScheduleRetrying notifies all hooks that implement ScheduleRetrying.
func (r *Registry) EmitScheduleRetrying(ctx context.Context, s *schedule.Schedule, attempt int, retryAt time.Time) {
	for _, e := range r.retrying {
		if err := e.hook.OnScheduleRetrying(ctx, s, attempt, retryAt); err != nil {
			r.logHookError("OnScheduleRetrying", e.name, err)
		}
	}
}

// EmitScheduleCompleted notifies all hooks that implement
// ScheduleCompleted, then the terminal hooks.
func (r *Registry) EmitScheduleCompleted(ctx context.Context, s *schedule.Schedule) {
	for _, e := range r.completed {
		if err := e.hook.OnScheduleCompleted(ctx, s); err != nil {
			r.logHookError("OnScheduleCompleted", e.name, err)
		}
	}
	r.emitTerminal(ctx, s)
}

// EmitScheduleFailed notifies all hooks that implement ScheduleFailed,
// then the terminal hooks.
func (r *Registry) EmitScheduleFailed(ctx context.Context, s *schedule.Schedule, schedErr error) {
	for _, e := range r.failed {
		if err := e.hook.OnScheduleFailed(ctx, s, schedErr); err != nil {
			r.logHookError("OnScheduleFailed", e.name, err)
		}
	}
	r.emitTerminal(ctx, s)
}

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

func (r *Registry) emitTerminal(ctx context.Context, s *schedule.Schedule) {
	for _, e := range r.terminal {
		if err := e.hook.OnScheduleTerminal(ctx, s); err != nil {
			r.logHookError("OnScheduleTerminal", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block dispatch.
func (r *Registry) logHookError(event, hookName string, err error) {
	r.logger.Warn("lifecycle hook error",
		slog.String("event", event),
		slog.String("hook", hookName),
		slog.String("error", err.Error()),
	)
}
