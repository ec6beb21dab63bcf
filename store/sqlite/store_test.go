package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
	"github.com/Legatia/DeFlow-sub000/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func newPending(t *testing.T, in schedule.Input, next time.Time) *schedule.Schedule {
	t.Helper()

	spec, err := schedule.Build(in, next.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	n := next
	return &schedule.Schedule{
		Entity:        deflow.NewEntityAt(next.Add(-time.Hour)),
		ID:            id.NewScheduleID(),
		Spec:          spec,
		WorkflowID:    "wf1",
		NodeID:        "node1",
		Status:        schedule.StatusPending,
		NextExecution: &n,
	}
}

func recurringInput() schedule.Input {
	return schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/06/24 10:00:00",
		IntervalSeconds: 300,
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	next := time.Date(2024, 6, 1, 10, 0, 0, 123456789, time.UTC)
	sched := newPending(t, recurringInput(), next)
	if err := s.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	got, err := s.GetSchedule(ctx, sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.WorkflowID != "wf1" || got.NodeID != "node1" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Status != schedule.StatusPending {
		t.Errorf("Status = %v", got.Status)
	}
	// Nanosecond precision survives the integer columns.
	if !got.NextExecution.Equal(next) {
		t.Errorf("NextExecution = %v, want %v", got.NextExecution, next)
	}
	if got.Spec.Interval != 5*time.Minute {
		t.Errorf("Interval = %v", got.Spec.Interval)
	}
	if !got.CreatedAt.Equal(sched.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, sched.CreatedAt)
	}
}

func TestSpecRoundTrip_CronAndHolidays(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	cronSched := newPending(t, schedule.Input{
		Mode:           schedule.ModeCron,
		CronExpression: "0 9 * * 1-5",
		Timezone:       "America/New_York",
	}, time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC))
	if err := s.CreateSchedule(ctx, cronSched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	got, err := s.GetSchedule(ctx, cronSched.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Spec.Expr.String() != "0 9 * * 1-5" {
		t.Errorf("Expr = %q", got.Spec.Expr.String())
	}
	if got.Spec.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", got.Spec.Timezone)
	}

	holSched := newPending(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/07/24 09:00:00",
		IntervalSeconds: 86_400,
		SkipHolidays:    true,
		Holidays:        schedule.NewDateSet("2024-07-04"),
	}, time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))
	if err := s.CreateSchedule(ctx, holSched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	got, err = s.GetSchedule(ctx, holSched.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Spec.Holidays == nil {
		t.Fatal("holiday set lost in round trip")
	}
	if !got.Spec.Holidays.IsHoliday(time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC)) {
		t.Error("holiday date lost in round trip")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetSchedule(context.Background(), id.NewScheduleID())
	if !errors.Is(err, deflow.ErrScheduleNotFound) {
		t.Errorf("want ErrScheduleNotFound, got %v", err)
	}
}

func TestDueSchedules_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	early := newPending(t, recurringInput(), now.Add(-2*time.Hour))
	late := newPending(t, recurringInput(), now.Add(-time.Hour))
	future := newPending(t, recurringInput(), now.Add(time.Hour))
	for _, sched := range []*schedule.Schedule{late, early, future} {
		if err := s.CreateSchedule(ctx, sched); err != nil {
			t.Fatalf("CreateSchedule: %v", err)
		}
	}

	due, err := s.DueSchedules(ctx, now)
	if err != nil {
		t.Fatalf("DueSchedules: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len(due) = %d, want 2", len(due))
	}
	if due[0].ID.String() != early.ID.String() || due[1].ID.String() != late.ID.String() {
		t.Errorf("due order wrong: got %s, %s", due[0].ID, due[1].ID)
	}
}

func TestClaimFiring_AtMostOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sched := newPending(t, recurringInput(), now.Add(-time.Minute))
	if err := s.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	first, err := s.ClaimFiring(ctx, sched.ID, now)
	if err != nil || !first {
		t.Fatalf("first claim = %v, %v; want true, nil", first, err)
	}

	got, err := s.GetSchedule(ctx, sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Status != schedule.StatusFiring {
		t.Errorf("Status after claim = %v, want firing", got.Status)
	}

	second, err := s.ClaimFiring(ctx, sched.ID, now)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second {
		t.Error("second claim succeeded; at-most-once violated")
	}
}

func TestClaimFiring_NotDueAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sched := newPending(t, recurringInput(), now.Add(time.Minute))
	if err := s.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	claimed, err := s.ClaimFiring(ctx, sched.ID, now)
	if err != nil {
		t.Fatalf("ClaimFiring: %v", err)
	}
	if claimed {
		t.Error("claimed a schedule that is not yet due")
	}

	if _, err := s.ClaimFiring(ctx, id.NewScheduleID(), now); !errors.Is(err, deflow.ErrScheduleNotFound) {
		t.Errorf("unknown id: want ErrScheduleNotFound, got %v", err)
	}
}

// A cancel that lands while the trigger runs must not be overwritten by
// the post-fire write.
func TestResolveFiring_CancelWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sched := newPending(t, recurringInput(), now.Add(-time.Minute))
	if err := s.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if claimed, err := s.ClaimFiring(ctx, sched.ID, now); err != nil || !claimed {
		t.Fatalf("ClaimFiring = %v, %v; want true, nil", claimed, err)
	}

	// The happy path first: a firing row accepts the post-fire state.
	advanced := sched.Clone()
	advanced.Status = schedule.StatusPending
	advanced.ExecutionCount = 1
	next := now.Add(5 * time.Minute)
	advanced.NextExecution = &next

	ok, err := s.ResolveFiring(ctx, advanced)
	if err != nil || !ok {
		t.Fatalf("ResolveFiring = %v, %v; want true, nil", ok, err)
	}

	// Claim again, cancel underneath, and the resolution must lose.
	if claimed, err := s.ClaimFiring(ctx, sched.ID, now.Add(5*time.Minute)); err != nil || !claimed {
		t.Fatalf("second ClaimFiring = %v, %v; want true, nil", claimed, err)
	}
	cancelled := advanced.Clone()
	cancelled.Status = schedule.StatusCancelled
	cancelled.NextExecution = nil
	if err := s.UpdateSchedule(ctx, cancelled); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	advanced.ExecutionCount = 2
	ok, err = s.ResolveFiring(ctx, advanced)
	if err != nil {
		t.Fatalf("ResolveFiring: %v", err)
	}
	if ok {
		t.Error("ResolveFiring overwrote a cancelled schedule")
	}

	got, err := s.GetSchedule(ctx, sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Status != schedule.StatusCancelled || got.NextExecution != nil {
		t.Errorf("status = %v, next = %v; want cancelled, terminal", got.Status, got.NextExecution)
	}

	if _, err := s.ResolveFiring(ctx, newPending(t, recurringInput(), now)); !errors.Is(err, deflow.ErrScheduleNotFound) {
		t.Errorf("unknown id: want ErrScheduleNotFound, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	sched := newPending(t, recurringInput(), time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	if err := s.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	sched.Status = schedule.StatusCancelled
	sched.NextExecution = nil
	if err := s.UpdateSchedule(ctx, sched); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	got, _ := s.GetSchedule(ctx, sched.ID)
	if got.Status != schedule.StatusCancelled || got.NextExecution != nil {
		t.Errorf("after update: status %v, next %v", got.Status, got.NextExecution)
	}

	if err := s.DeleteSchedule(ctx, sched.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if err := s.DeleteSchedule(ctx, sched.ID); !errors.Is(err, deflow.ErrScheduleNotFound) {
		t.Errorf("second delete: want ErrScheduleNotFound, got %v", err)
	}

	other := newPending(t, recurringInput(), time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	if err := s.UpdateSchedule(ctx, other); !errors.Is(err, deflow.ErrScheduleNotFound) {
		t.Errorf("update unknown: want ErrScheduleNotFound, got %v", err)
	}
}
