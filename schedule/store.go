package schedule

import (
	"context"
	"time"

	"github.com/Legatia/DeFlow-sub000/id"
)

// Store defines the persistence contract for schedules. Backends must be
// safe for concurrent use and must return copies the caller can mutate
// without racing the store.
type Store interface {
	// CreateSchedule persists a new schedule.
	CreateSchedule(ctx context.Context, s *Schedule) error

	// GetSchedule retrieves a schedule by ID. Returns
	// deflow.ErrScheduleNotFound for unknown IDs.
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*Schedule, error)

	// ListSchedules returns a snapshot of all schedules.
	ListSchedules(ctx context.Context) ([]*Schedule, error)

	// DueSchedules returns pending schedules whose next execution is at
	// or before now, soonest first.
	DueSchedules(ctx context.Context, now time.Time) ([]*Schedule, error)

	// UpdateSchedule persists changes to an existing schedule.
	UpdateSchedule(ctx context.Context, s *Schedule) error

	// DeleteSchedule removes a schedule by ID.
	DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error

	// ClaimFiring atomically moves a schedule from pending to firing,
	// provided it is still due at now. It returns false without error
	// when the schedule was already claimed, cancelled, or rescheduled;
	// the at-most-once gate for each due instant.
	ClaimFiring(ctx context.Context, scheduleID id.ScheduleID, now time.Time) (bool, error)

	// ResolveFiring persists the post-fire state in s, provided the
	// stored schedule is still firing. It returns false without error
	// when the schedule left the firing state underneath the caller (a
	// cancel landed while the trigger ran); the stored state is kept
	// and s is discarded.
	ResolveFiring(ctx context.Context, s *Schedule) (bool, error)
}
