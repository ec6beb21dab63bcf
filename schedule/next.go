package schedule

import (
	"time"
)

// shiftLimit bounds the weekend/holiday walk so a holiday set covering
// every day cannot spin forever.
const shiftLimit = 1500

// State is the execution bookkeeping Next needs from a schedule.
type State struct {
	ExecutionCount int
	LastExecution  time.Time // zero when the schedule has never fired
	CreatedAt      time.Time
}

// Next computes the next execution instant for spec given the current
// state. ok is false when the schedule is terminal: a one-time spec that
// has fired, an exhausted max-executions cap, a candidate past the end
// bound, or a cron expression with no further match.
func Next(spec *Spec, st State) (next time.Time, ok bool, err error) {
	if spec.MaxExecutions > 0 && st.ExecutionCount >= spec.MaxExecutions {
		return time.Time{}, false, nil
	}

	var candidate time.Time
	switch spec.Mode {
	case ModeOneTime:
		if st.ExecutionCount > 0 {
			return time.Time{}, false, nil
		}
		candidate = spec.Base

	case ModeRecurring:
		// Multiples of the immutable base, not accumulation on a
		// drifting value. Seconds math: count*interval as a Duration
		// overflows int64 nanoseconds on long-lived uncapped schedules.
		offset := int64(st.ExecutionCount) * int64(spec.Interval/time.Second)
		candidate = time.Unix(spec.Base.Unix()+offset, int64(spec.Base.Nanosecond())).
			In(spec.Base.Location())
		candidate = shift(spec, candidate)

	case ModeCron:
		after := st.LastExecution
		if after.IsZero() {
			after = st.CreatedAt
		}
		candidate, err = spec.Expr.NextAfter(after.In(spec.Location()))
		if err != nil {
			return time.Time{}, false, err
		}

	default:
		return time.Time{}, false, nil
	}

	if !spec.End.IsZero() && candidate.After(spec.End) {
		return time.Time{}, false, nil
	}
	return candidate, true, nil
}

// shift applies the weekend and holiday rules in the spec's timezone:
// Saturday and Sunday move forward to Monday at the same wall-clock time;
// a holiday moves forward one day, after which the weekend rule is
// re-applied, until a clear day is reached.
func shift(spec *Spec, t time.Time) time.Time {
	if !spec.SkipWeekends && !spec.SkipHolidays {
		return t
	}

	lt := t.In(spec.Location())
	for range shiftLimit {
		if spec.SkipWeekends {
			switch lt.Weekday() {
			case time.Saturday:
				lt = addDays(lt, 2)
				continue
			case time.Sunday:
				lt = addDays(lt, 1)
				continue
			}
		}
		if spec.SkipHolidays && spec.Holidays != nil && spec.Holidays.IsHoliday(lt) {
			lt = addDays(lt, 1)
			continue
		}
		break
	}
	return lt
}

// addDays advances by whole calendar days preserving the wall-clock time,
// which plain duration addition would not do across DST transitions.
func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
