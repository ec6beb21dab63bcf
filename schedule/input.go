package schedule

import (
	"fmt"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/cron"
	"github.com/Legatia/DeFlow-sub000/timefmt"
)

// Validation bounds.
const (
	MinIntervalSeconds = 60        // one minute
	MaxIntervalSeconds = 2_592_000 // thirty days
	MaxExecutionsLimit = 10_000
	MaxRetryAttempts   = 10
)

// Input is the raw creation request for a schedule. Build validates it
// into a Spec; nothing is persisted until validation has passed in full.
type Input struct {
	Mode Mode

	// DateTime and DateTimeLayout name the start instant for one-time and
	// recurring schedules. Ignored for cron schedules.
	DateTime       string
	DateTimeLayout timefmt.Layout

	// CronExpression is required for cron schedules, ignored otherwise.
	CronExpression string

	// IntervalSeconds separates recurring executions.
	IntervalSeconds int64

	// MaxExecutions caps total executions; zero means no cap.
	MaxExecutions int

	// EndDate, when set, bounds execution instants. Same layout and
	// timezone as DateTime.
	EndDate string

	SkipWeekends bool
	SkipHolidays bool
	Holidays     HolidaySet

	RetryOnFailure bool
	RetryAttempts  int

	// Timezone is an IANA identifier; empty means UTC.
	Timezone string
}

// Build validates in and produces the immutable Spec. now anchors the
// effective start of cron schedules for end-date validation. All failures
// wrap one of deflow.ErrFormat, deflow.ErrCalendar, or deflow.ErrRange.
func Build(in Input, now time.Time) (*Spec, error) {
	loc, err := timefmt.Location(in.Timezone)
	if err != nil {
		return nil, err
	}

	spec := &Spec{
		Mode:           in.Mode,
		SkipWeekends:   in.SkipWeekends,
		SkipHolidays:   in.SkipHolidays,
		Holidays:       in.Holidays,
		RetryOnFailure: in.RetryOnFailure,
		RetryAttempts:  in.RetryAttempts,
		Timezone:       in.Timezone,
		loc:            loc,
	}

	switch in.Mode {
	case ModeOneTime, ModeRecurring:
		if in.DateTime == "" {
			return nil, fmt.Errorf("schedule: datetime string is required for %s mode: %w",
				in.Mode, deflow.ErrFormat)
		}
		base, err := timefmt.Parse(in.DateTime, in.DateTimeLayout, loc)
		if err != nil {
			return nil, err
		}
		spec.Base = base

		if in.Mode == ModeRecurring {
			if in.IntervalSeconds < MinIntervalSeconds || in.IntervalSeconds > MaxIntervalSeconds {
				return nil, fmt.Errorf("schedule: interval %ds outside [%d, %d]: %w",
					in.IntervalSeconds, MinIntervalSeconds, MaxIntervalSeconds, deflow.ErrRange)
			}
			spec.Interval = time.Duration(in.IntervalSeconds) * time.Second
		}

	case ModeCron:
		if in.CronExpression == "" {
			return nil, fmt.Errorf("schedule: cron expression is required for cron mode: %w",
				deflow.ErrFormat)
		}
		expr, err := cron.Parse(in.CronExpression)
		if err != nil {
			return nil, err
		}
		spec.Expr = expr

	default:
		return nil, fmt.Errorf("schedule: unknown mode %d: %w", int(in.Mode), deflow.ErrRange)
	}

	if in.MaxExecutions < 0 || in.MaxExecutions > MaxExecutionsLimit {
		return nil, fmt.Errorf("schedule: max executions %d outside [1, %d] (0 = no cap): %w",
			in.MaxExecutions, MaxExecutionsLimit, deflow.ErrRange)
	}
	spec.MaxExecutions = in.MaxExecutions

	if in.RetryAttempts < 0 || in.RetryAttempts > MaxRetryAttempts {
		return nil, fmt.Errorf("schedule: retry attempts %d outside [0, %d]: %w",
			in.RetryAttempts, MaxRetryAttempts, deflow.ErrRange)
	}

	if in.EndDate != "" {
		end, err := timefmt.Parse(in.EndDate, in.DateTimeLayout, loc)
		if err != nil {
			return nil, err
		}

		// The effective start is the base instant, or the creation
		// instant for cron schedules.
		start := spec.Base
		if in.Mode == ModeCron {
			start = now
		}
		if !end.After(start) {
			return nil, fmt.Errorf("schedule: end date %s is not after start %s: %w",
				end.Format(time.RFC3339), start.Format(time.RFC3339), deflow.ErrRange)
		}
		spec.End = end
	}

	return spec, nil
}
