package engine

import (
	"context"
	"time"

	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
	"github.com/Legatia/DeFlow-sub000/timefmt"
)

// Info is the caller-facing view of a schedule.
type Info struct {
	ID             id.ScheduleID
	Mode           schedule.Mode
	WorkflowID     string
	NodeID         string
	Status         schedule.Status
	Active         bool
	NextExecution  *time.Time
	LastExecution  *time.Time
	ExecutionCount int
	CreatedAt      time.Time
}

func toInfo(s *schedule.Schedule) Info {
	return Info{
		ID:             s.ID,
		Mode:           s.Spec.Mode,
		WorkflowID:     s.WorkflowID,
		NodeID:         s.NodeID,
		Status:         s.Status,
		Active:         s.Active(),
		NextExecution:  s.NextExecution,
		LastExecution:  s.LastExecution,
		ExecutionCount: s.ExecutionCount,
		CreatedAt:      s.CreatedAt,
	}
}

// ScheduleOption adjusts a single schedule creation request.
type ScheduleOption func(*schedule.Input)

// WithLayout selects the datetime string layout. Defaults to the
// universal "dd/mm/yy hh:mm:ss" layout.
func WithLayout(layout timefmt.Layout) ScheduleOption {
	return func(in *schedule.Input) { in.DateTimeLayout = layout }
}

// WithTimezone evaluates the schedule's wall-clock fields in the named
// IANA zone instead of UTC.
func WithTimezone(tz string) ScheduleOption {
	return func(in *schedule.Input) { in.Timezone = tz }
}

// WithMaxExecutions caps the schedule's total successful executions.
func WithMaxExecutions(n int) ScheduleOption {
	return func(in *schedule.Input) { in.MaxExecutions = n }
}

// WithEndDate bounds execution instants. Same layout and timezone as the
// start datetime.
func WithEndDate(datetime string) ScheduleOption {
	return func(in *schedule.Input) { in.EndDate = datetime }
}

// WithSkipWeekends shifts Saturday and Sunday instants to the next
// Monday at the same wall-clock time.
func WithSkipWeekends() ScheduleOption {
	return func(in *schedule.Input) { in.SkipWeekends = true }
}

// WithSkipHolidays shifts instants landing on a holiday forward one day
// at a time, re-applying the weekend rule after each shift.
func WithSkipHolidays(set schedule.HolidaySet) ScheduleOption {
	return func(in *schedule.Input) {
		in.SkipHolidays = true
		in.Holidays = set
	}
}

// WithRetry retries failed trigger dispatches up to attempts times.
func WithRetry(attempts int) ScheduleOption {
	return func(in *schedule.Input) {
		in.RetryOnFailure = true
		in.RetryAttempts = attempts
	}
}

// CreateSchedule creates a one-time schedule firing at the given datetime
// string.
func (e *Engine) CreateSchedule(ctx context.Context, workflowID, nodeID, datetime string, opts ...ScheduleOption) (Info, error) {
	in := schedule.Input{
		Mode:     schedule.ModeOneTime,
		DateTime: datetime,
	}
	return e.create(ctx, in, workflowID, nodeID, opts)
}

// CreateRecurringSchedule creates a schedule firing every intervalSeconds
// from the given base datetime.
func (e *Engine) CreateRecurringSchedule(ctx context.Context, workflowID, nodeID, datetime string, intervalSeconds int64, opts ...ScheduleOption) (Info, error) {
	in := schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        datetime,
		IntervalSeconds: intervalSeconds,
	}
	return e.create(ctx, in, workflowID, nodeID, opts)
}

// CreateCronSchedule creates a schedule driven by a five-field cron
// expression.
func (e *Engine) CreateCronSchedule(ctx context.Context, workflowID, nodeID, expression string, opts ...ScheduleOption) (Info, error) {
	in := schedule.Input{
		Mode:           schedule.ModeCron,
		CronExpression: expression,
	}
	return e.create(ctx, in, workflowID, nodeID, opts)
}

func (e *Engine) create(ctx context.Context, in schedule.Input, workflowID, nodeID string, opts []ScheduleOption) (Info, error) {
	for _, opt := range opts {
		opt(&in)
	}
	s, err := e.registry.Create(ctx, in, workflowID, nodeID)
	if err != nil {
		return Info{}, err
	}
	return toInfo(s), nil
}

// CancelSchedule makes the schedule terminal. Cancelling an
// already-terminal schedule is a no-op; only an unknown ID is an error.
func (e *Engine) CancelSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	return e.registry.Cancel(ctx, scheduleID)
}

// GetSchedule returns the schedule with the given ID.
func (e *Engine) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (Info, error) {
	s, err := e.registry.Get(ctx, scheduleID)
	if err != nil {
		return Info{}, err
	}
	return toInfo(s), nil
}

// ListSchedules returns all schedules.
func (e *Engine) ListSchedules(ctx context.Context) ([]Info, error) {
	all, err := e.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Info, len(all))
	for i, s := range all {
		out[i] = toInfo(s)
	}
	return out, nil
}

// NextExecutions returns up to limit active schedules ordered by their
// next execution instant, soonest first.
func (e *Engine) NextExecutions(ctx context.Context, limit int) ([]Info, error) {
	upcoming, err := e.registry.NextExecutions(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Info, len(upcoming))
	for i, s := range upcoming {
		out[i] = toInfo(s)
	}
	return out, nil
}

// UpdateSchedule re-points a one-time or recurring schedule at a new
// base instant given as a datetime string. The string is parsed with the
// given layout in the schedule's own timezone. Cron and terminal
// schedules are rejected.
func (e *Engine) UpdateSchedule(ctx context.Context, scheduleID id.ScheduleID, datetime string, layout timefmt.Layout) (Info, error) {
	s, err := e.registry.Get(ctx, scheduleID)
	if err != nil {
		return Info{}, err
	}

	newBase, err := timefmt.Parse(datetime, layout, s.Spec.Location())
	if err != nil {
		return Info{}, err
	}

	updated, err := e.registry.Reschedule(ctx, scheduleID, newBase)
	if err != nil {
		return Info{}, err
	}
	return toInfo(updated), nil
}

// FormatInstant renders an instant in the universal "dd/mm/yy hh:mm:ss"
// layout, the inverse of parsing.
func (e *Engine) FormatInstant(t time.Time) string {
	return timefmt.FormatUniversal(t)
}
