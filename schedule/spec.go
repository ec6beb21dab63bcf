package schedule

import (
	"time"

	"github.com/Legatia/DeFlow-sub000/cron"
	"github.com/Legatia/DeFlow-sub000/timefmt"
)

// Mode selects how a schedule's execution instants are computed.
type Mode int

const (
	// ModeOneTime fires once at an absolute instant.
	ModeOneTime Mode = iota
	// ModeRecurring fires at a fixed interval from a base instant.
	ModeRecurring
	// ModeCron fires per a five-field cron expression.
	ModeCron
)

// String returns the mode name used in logs, metrics, and stores.
func (m Mode) String() string {
	switch m {
	case ModeOneTime:
		return "one_time"
	case ModeRecurring:
		return "recurring"
	case ModeCron:
		return "cron"
	default:
		return "unknown"
	}
}

// HolidaySet reports whether a calendar date counts as a holiday. The set
// is supplied by the caller; the engine never maintains holiday data of
// its own. Implementations are consulted with a wall-clock time in the
// schedule's timezone and must only inspect its date.
type HolidaySet interface {
	IsHoliday(t time.Time) bool
}

// DateSet is a HolidaySet backed by a set of ISO dates ("2006-01-02").
type DateSet map[string]struct{}

// NewDateSet builds a DateSet from ISO date strings.
func NewDateSet(dates ...string) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// IsHoliday implements HolidaySet.
func (s DateSet) IsHoliday(t time.Time) bool {
	_, ok := s[t.Format("2006-01-02")]
	return ok
}

// Dates returns the set's dates, unordered. Used by durable stores to
// persist the set alongside the spec.
func (s DateSet) Dates() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	return out
}

// Spec is the canonical, immutable form of a schedule's timing intent.
// Produced only by Build (or rebuilt by a store from its persisted form);
// never mutated afterwards.
type Spec struct {
	Mode Mode `json:"mode"`

	// Base is the resolved start instant for one-time and recurring
	// schedules. Recurring instants are computed as multiples of
	// Interval from Base, never by accumulating additions.
	Base time.Time `json:"base,omitzero"`

	// Interval separates recurring executions.
	Interval time.Duration `json:"interval,omitempty"`

	// Expr drives cron schedules.
	Expr cron.Expression `json:"expr,omitzero"`

	// MaxExecutions caps total successful executions; zero means no cap.
	MaxExecutions int `json:"max_executions,omitempty"`

	// End bounds execution instants; the zero time means no bound.
	End time.Time `json:"end,omitzero"`

	SkipWeekends bool `json:"skip_weekends,omitempty"`
	SkipHolidays bool `json:"skip_holidays,omitempty"`

	// Holidays backs SkipHolidays. Externally supplied; may be nil.
	Holidays HolidaySet `json:"-"`

	RetryOnFailure bool `json:"retry_on_failure,omitempty"`
	RetryAttempts  int  `json:"retry_attempts,omitempty"`

	// Timezone is the IANA identifier wall-clock rules are evaluated in.
	// Empty means UTC.
	Timezone string `json:"timezone,omitempty"`

	loc *time.Location
}

// Location returns the spec's resolved timezone. Specs built by Build carry
// it pre-resolved; specs rebuilt by a store resolve it on first use. An
// unresolvable zone falls back to UTC (Build already rejected bad names).
func (s *Spec) Location() *time.Location {
	if s.loc == nil {
		loc, err := timefmt.Location(s.Timezone)
		if err != nil {
			loc = time.UTC
		}
		s.loc = loc
	}
	return s.loc
}
