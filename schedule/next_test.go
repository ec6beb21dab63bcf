package schedule_test

import (
	"testing"
	"time"

	"github.com/Legatia/DeFlow-sub000/schedule"
)

func mustBuild(t *testing.T, in schedule.Input) *schedule.Spec {
	t.Helper()

	spec, err := schedule.Build(in, buildNow)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return spec
}

func TestNext_OneTime(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:     schedule.ModeOneTime,
		DateTime: "25/12/24 09:30:00",
	})

	next, ok, err := schedule.Next(spec, schedule.State{CreatedAt: buildNow})
	if err != nil || !ok {
		t.Fatalf("Next = %v, %v, %v", next, ok, err)
	}
	if !next.Equal(spec.Base) {
		t.Errorf("next = %v, want base %v", next, spec.Base)
	}

	// After its single execution a one-time schedule is terminal.
	_, ok, err = schedule.Next(spec, schedule.State{ExecutionCount: 1, LastExecution: next, CreatedAt: buildNow})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Error("one-time schedule not terminal after firing")
	}
}

// Recurring instants are multiples of the base, not accumulated additions.
func TestNext_RecurringDriftFree(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/07/24 09:00:00",
		IntervalSeconds: 300,
	})

	for count, wantOffset := range map[int]time.Duration{
		0: 0,
		1: 5 * time.Minute,
		2: 10 * time.Minute,
		7: 35 * time.Minute,
	} {
		next, ok, err := schedule.Next(spec, schedule.State{ExecutionCount: count, CreatedAt: buildNow})
		if err != nil || !ok {
			t.Fatalf("Next(count=%d) = %v, %v", count, ok, err)
		}
		if want := spec.Base.Add(wantOffset); !next.Equal(want) {
			t.Errorf("Next(count=%d) = %v, want %v", count, next, want)
		}
	}
}

// An offset far beyond the int64-nanosecond horizon still lands on an
// exact multiple of the base.
func TestNext_RecurringLargeCount(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/07/24 09:00:00",
		IntervalSeconds: 2_592_000,
	})

	const count = 3600 // ~296 years of 30-day intervals
	next, ok, err := schedule.Next(spec, schedule.State{ExecutionCount: count, CreatedAt: buildNow})
	if err != nil || !ok {
		t.Fatalf("Next = %v, %v", ok, err)
	}
	want := time.Unix(spec.Base.Unix()+count*2_592_000, 0).UTC()
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
	if next.Before(spec.Base) {
		t.Error("offset wrapped around the base")
	}
}

func TestNext_MaxExecutionsBound(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/07/24 09:00:00",
		IntervalSeconds: 300,
		MaxExecutions:   2,
	})

	_, ok, err := schedule.Next(spec, schedule.State{ExecutionCount: 2, CreatedAt: buildNow})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Error("schedule at max executions not terminal")
	}
}

func TestNext_EndBound(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "01/07/24 09:00:00",
		IntervalSeconds: 3600,
		EndDate:         "01/07/24 10:30:00",
	})

	// Count 1 → 10:00, inside the bound.
	next, ok, err := schedule.Next(spec, schedule.State{ExecutionCount: 1, CreatedAt: buildNow})
	if err != nil || !ok {
		t.Fatalf("Next = %v, %v", ok, err)
	}
	if want := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// Count 2 → 11:00, past the end bound.
	_, ok, err = schedule.Next(spec, schedule.State{ExecutionCount: 2, CreatedAt: buildNow})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Error("candidate past end bound not terminal")
	}
}

func TestNext_SkipWeekends(t *testing.T) {
	// 06/07/24 is a Saturday.
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "06/07/24 09:00:00",
		IntervalSeconds: 86_400,
		SkipWeekends:    true,
	})

	next, ok, err := schedule.Next(spec, schedule.State{CreatedAt: buildNow})
	if err != nil || !ok {
		t.Fatalf("Next = %v, %v", ok, err)
	}

	// Saturday shifts to Monday 08/07/24 at the same wall-clock time.
	want := time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
	if wd := next.Weekday(); wd == time.Saturday || wd == time.Sunday {
		t.Errorf("next lands on %v", wd)
	}
}

func TestNext_SkipWeekends_Sunday(t *testing.T) {
	// 07/07/24 is a Sunday.
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "07/07/24 14:30:00",
		IntervalSeconds: 86_400,
		SkipWeekends:    true,
	})

	next, _, err := schedule.Next(spec, schedule.State{CreatedAt: buildNow})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if want := time.Date(2024, 7, 8, 14, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNext_SkipHolidays(t *testing.T) {
	// 04/07/24 is a Thursday and a holiday; 05/07/24 is clear.
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "04/07/24 09:00:00",
		IntervalSeconds: 86_400,
		SkipHolidays:    true,
		Holidays:        schedule.NewDateSet("2024-07-04"),
	})

	next, _, err := schedule.Next(spec, schedule.State{CreatedAt: buildNow})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if want := time.Date(2024, 7, 5, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

// A holiday shift landing on a weekend re-applies the weekend rule.
func TestNext_HolidayThenWeekend(t *testing.T) {
	// 05/07/24 is a Friday holiday; +1 day is Saturday, which the
	// weekend rule pushes to Monday 08/07/24.
	spec := mustBuild(t, schedule.Input{
		Mode:            schedule.ModeRecurring,
		DateTime:        "05/07/24 09:00:00",
		IntervalSeconds: 86_400,
		SkipWeekends:    true,
		SkipHolidays:    true,
		Holidays:        schedule.NewDateSet("2024-07-05"),
	})

	next, _, err := schedule.Next(spec, schedule.State{CreatedAt: buildNow})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if want := time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNext_CronDelegates(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:           schedule.ModeCron,
		CronExpression: "*/15 * * * *",
	})

	created := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	next, ok, err := schedule.Next(spec, schedule.State{CreatedAt: created})
	if err != nil || !ok {
		t.Fatalf("Next = %v, %v", ok, err)
	}
	if want := time.Date(2024, 6, 10, 10, 15, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// Subsequent computation continues from the last execution.
	next2, _, err := schedule.Next(spec, schedule.State{
		ExecutionCount: 1, LastExecution: next, CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if want := time.Date(2024, 6, 10, 10, 30, 0, 0, time.UTC); !next2.Equal(want) {
		t.Errorf("next2 = %v, want %v", next2, want)
	}
}

func TestNext_CronEndBound(t *testing.T) {
	spec := mustBuild(t, schedule.Input{
		Mode:           schedule.ModeCron,
		CronExpression: "0 9 * * *",
		EndDate:        "02/07/24 00:00:00",
	})

	created := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	// The next 09:00 after creation is 02/07 09:00, past the end bound.
	_, ok, err := schedule.Next(spec, schedule.State{CreatedAt: created})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Error("cron candidate past end bound not terminal")
	}
}
