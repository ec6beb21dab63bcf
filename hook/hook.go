// Package hook defines the lifecycle hook system for DeFlow. Hooks are
// notified of schedule lifecycle events (fired, retrying, completed,
// failed) and can react to them: logging, metrics, tracing.
//
// Each lifecycle event is a separate interface so hooks opt in only to
// the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ScheduleFired is called after a schedule's trigger returns successfully.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, s *schedule.Schedule, elapsed time.Duration) error
}

// ScheduleRetrying is called when a trigger fails but the schedule is
// queued for another attempt.
type ScheduleRetrying interface {
	OnScheduleRetrying(ctx context.Context, s *schedule.Schedule, attempt int, retryAt time.Time) error
}

// ScheduleCompleted is called when a schedule exhausts its executions or
// its bounds and completes.
type ScheduleCompleted interface {
	OnScheduleCompleted(ctx context.Context, s *schedule.Schedule) error
}

// ScheduleFailed is called when a schedule fails terminally, its retries
// spent.
type ScheduleFailed interface {
	OnScheduleFailed(ctx context.Context, s *schedule.Schedule, err error) error
}

// ScheduleTerminal is called whenever a schedule reaches any terminal
// status, after the more specific completed or failed event.
type ScheduleTerminal interface {
	OnScheduleTerminal(ctx context.Context, s *schedule.Schedule) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
