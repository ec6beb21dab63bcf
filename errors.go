package deflow

import "errors"

var (
	// Configuration errors.
	ErrNoStore   = errors.New("deflow: no store configured")
	ErrNoTrigger = errors.New("deflow: no trigger configured")

	// Validation errors. All are surfaced synchronously at creation time;
	// nothing is persisted when one is returned.
	ErrFormat      = errors.New("deflow: string does not match the expected format")
	ErrCalendar    = errors.New("deflow: calendar-invalid date")
	ErrRange       = errors.New("deflow: value out of allowed range")
	ErrNoCronMatch = errors.New("deflow: cron expression has no match within the scan bound")

	// Registry errors.
	ErrScheduleNotFound = errors.New("deflow: schedule not found")
	ErrScheduleTerminal = errors.New("deflow: schedule is terminal")
	ErrInvalidState     = errors.New("deflow: invalid state transition")
)
