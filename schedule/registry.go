package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/backoff"
	"github.com/Legatia/DeFlow-sub000/id"
)

// Registry coordinates schedule lifecycle over a Store: creation,
// cancellation, queries, and (on behalf of the dispatcher) claiming and
// advancing. It is the only writer of execution bookkeeping.
type Registry struct {
	store  Store
	bo     backoff.Strategy
	logger *slog.Logger
	now    func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBackoff sets the retry delay strategy. Defaults to
// backoff.DefaultStrategy().
func WithBackoff(b backoff.Strategy) RegistryOption {
	return func(r *Registry) { r.bo = b }
}

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithClock sets the time source. Tests inject a fake clock here.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a Registry over the given store.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  store,
		bo:     backoff.DefaultStrategy(),
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates in, computes the first execution instant, and persists
// the new schedule. Nothing is persisted when validation fails.
func (r *Registry) Create(ctx context.Context, in Input, workflowID, nodeID string) (*Schedule, error) {
	now := r.now()

	spec, err := Build(in, now)
	if err != nil {
		return nil, err
	}

	first, ok, err := Next(spec, State{CreatedAt: now})
	if err != nil {
		return nil, err
	}
	if !ok {
		// A spec whose very first instant is already out of bounds can
		// never fire; creating it would persist a dead schedule.
		return nil, fmt.Errorf("schedule: spec has no executable instant: %w", deflow.ErrRange)
	}

	s := &Schedule{
		Entity:        deflow.NewEntityAt(now),
		ID:            id.NewScheduleID(),
		Spec:          spec,
		WorkflowID:    workflowID,
		NodeID:        nodeID,
		Status:        StatusPending,
		NextExecution: &first,
	}

	if err := r.store.CreateSchedule(ctx, s); err != nil {
		return nil, err
	}

	r.logger.Info("schedule created",
		slog.String("schedule_id", s.ID.String()),
		slog.String("mode", spec.Mode.String()),
		slog.String("workflow_id", workflowID),
		slog.Time("next_execution", first),
	)
	return s, nil
}

// Get retrieves a schedule by ID.
func (r *Registry) Get(ctx context.Context, scheduleID id.ScheduleID) (*Schedule, error) {
	return r.store.GetSchedule(ctx, scheduleID)
}

// List returns a snapshot of all schedules.
func (r *Registry) List(ctx context.Context) ([]*Schedule, error) {
	return r.store.ListSchedules(ctx)
}

// Due returns pending schedules due at or before now, soonest first.
func (r *Registry) Due(ctx context.Context, now time.Time) ([]*Schedule, error) {
	return r.store.DueSchedules(ctx, now)
}

// NextExecutions returns up to limit active schedules ordered by their
// next execution instant, soonest first.
func (r *Registry) NextExecutions(ctx context.Context, limit int) ([]*Schedule, error) {
	all, err := r.store.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}

	active := all[:0]
	for _, s := range all {
		if s.Active() {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].NextExecution.Before(*active[j].NextExecution)
	})

	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// Cancel makes the schedule terminal. Cancelling an already-terminal
// schedule is a no-op; only an unknown ID is an error.
func (r *Registry) Cancel(ctx context.Context, scheduleID id.ScheduleID) error {
	s, err := r.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if s.Status.Terminal() {
		return nil
	}

	s.Status = StatusCancelled
	s.NextExecution = nil
	s.Touch(r.now())

	if err := r.store.UpdateSchedule(ctx, s); err != nil {
		return err
	}

	r.logger.Info("schedule cancelled", slog.String("schedule_id", scheduleID.String()))
	return nil
}

// ClaimFiring atomically claims a due schedule for firing. A false return
// means another sweep won the claim or the schedule was cancelled or
// rescheduled in the meantime.
func (r *Registry) ClaimFiring(ctx context.Context, scheduleID id.ScheduleID, now time.Time) (bool, error) {
	return r.store.ClaimFiring(ctx, scheduleID, now)
}

// Advance records the outcome of a fire at instant at and moves the
// schedule to its next state: success recomputes the next instant or
// completes the schedule; failure either schedules a retry or fails the
// schedule for good. Only the dispatcher calls Advance, and only on
// schedules it has claimed.
func (r *Registry) Advance(ctx context.Context, scheduleID id.ScheduleID, fireErr error, at time.Time) (*Schedule, error) {
	s, err := r.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusFiring {
		return nil, fmt.Errorf("schedule: advance on %s schedule %s: %w",
			s.Status, scheduleID, deflow.ErrInvalidState)
	}

	if fireErr != nil {
		r.recordFailure(s, fireErr, at)
	} else {
		if err := r.recordSuccess(s, at); err != nil {
			return nil, err
		}
	}
	s.Touch(at)

	// Conditional on the row still being firing: a cancel that landed
	// while the trigger ran wins, and the fire outcome is dropped.
	ok, err := r.store.ResolveFiring(ctx, s)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.Info("schedule cancelled during fire",
			slog.String("schedule_id", scheduleID.String()),
		)
		return r.store.GetSchedule(ctx, scheduleID)
	}
	return s, nil
}

func (r *Registry) recordSuccess(s *Schedule, at time.Time) error {
	s.ExecutionCount++
	s.ConsecutiveFailures = 0
	last := at
	s.LastExecution = &last

	next, ok, err := Next(s.Spec, State{
		ExecutionCount: s.ExecutionCount,
		LastExecution:  at,
		CreatedAt:      s.CreatedAt,
	})
	if err != nil {
		// A cron expression that can no longer match has simply run out
		// of instants; the schedule completes rather than fails.
		r.logger.Info("schedule ran out of matching instants",
			slog.String("schedule_id", s.ID.String()),
			slog.String("error", err.Error()),
		)
		ok = false
	}

	if !ok {
		s.Status = StatusCompleted
		s.NextExecution = nil
		r.logger.Info("schedule completed",
			slog.String("schedule_id", s.ID.String()),
			slog.Int("execution_count", s.ExecutionCount),
		)
		return nil
	}

	s.Status = StatusPending
	s.NextExecution = &next
	return nil
}

func (r *Registry) recordFailure(s *Schedule, fireErr error, at time.Time) {
	if s.Spec.RetryOnFailure && s.ConsecutiveFailures < s.Spec.RetryAttempts {
		s.ConsecutiveFailures++
		// Retry does not consume an execution: count and last execution
		// stay put, only the next instant moves.
		retryAt := at.Add(r.bo.Delay(s.ConsecutiveFailures))
		s.Status = StatusPending
		s.NextExecution = &retryAt

		r.logger.Warn("schedule dispatch failed, retrying",
			slog.String("schedule_id", s.ID.String()),
			slog.Int("consecutive_failures", s.ConsecutiveFailures),
			slog.Time("retry_at", retryAt),
			slog.String("error", fireErr.Error()),
		)
		return
	}

	s.Status = StatusFailed
	s.NextExecution = nil

	r.logger.Error("schedule failed permanently",
		slog.String("schedule_id", s.ID.String()),
		slog.Int("consecutive_failures", s.ConsecutiveFailures),
		slog.String("error", fireErr.Error()),
	)
}

// Reschedule re-points a one-time or recurring schedule at a new base
// instant, keeping its execution bookkeeping. Cron schedules and terminal
// schedules are rejected.
func (r *Registry) Reschedule(ctx context.Context, scheduleID id.ScheduleID, newBase time.Time) (*Schedule, error) {
	s, err := r.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, fmt.Errorf("schedule: reschedule %s: %w", scheduleID, deflow.ErrScheduleTerminal)
	}
	if s.Status == StatusFiring {
		return nil, fmt.Errorf("schedule: reschedule %s while firing: %w", scheduleID, deflow.ErrInvalidState)
	}
	if s.Spec.Mode == ModeCron {
		return nil, fmt.Errorf("schedule: cron schedules cannot be re-pointed: %w", deflow.ErrInvalidState)
	}

	spec := *s.Spec
	spec.Base = newBase
	if spec.Mode == ModeRecurring {
		// Keep candidate = Base + count*Interval landing exactly on the
		// new instant, so recurrence steps from it without a jump.
		spec.Base = newBase.Add(-time.Duration(s.ExecutionCount) * spec.Interval)
	}

	st := State{ExecutionCount: s.ExecutionCount, CreatedAt: s.CreatedAt}
	if s.LastExecution != nil {
		st.LastExecution = *s.LastExecution
	}
	next, ok, err := Next(&spec, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("schedule: new base %s leaves no executable instant: %w",
			newBase.Format(time.RFC3339), deflow.ErrRange)
	}

	s.Spec = &spec
	s.Status = StatusPending
	s.NextExecution = &next
	s.Touch(r.now())

	if err := r.store.UpdateSchedule(ctx, s); err != nil {
		return nil, err
	}

	r.logger.Info("schedule re-pointed",
		slog.String("schedule_id", scheduleID.String()),
		slog.Time("next_execution", next),
	)
	return s, nil
}
