// Package timefmt parses and renders the absolute datetime formats accepted
// by schedule creation.
//
// Two strict layouts are supported:
//   - Universal: "dd/mm/yy hh:mm:ss" (two-digit year, 2000–2099)
//   - ISO:       "yyyy-mm-dd hh:mm:ss"
//
// Matching is positional with exact field widths; there is no locale
// variation. A string that does not match its layout fails with ErrFormat.
// A string that matches but names an impossible date (31/02/24) fails with
// ErrCalendar; impossible dates are rejected, never normalized.
package timefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
)

// Layout selects which datetime template to match against.
type Layout int

const (
	// LayoutUniversal is "dd/mm/yy hh:mm:ss".
	LayoutUniversal Layout = iota
	// LayoutISO is "yyyy-mm-dd hh:mm:ss".
	LayoutISO
)

// String returns the layout's template, for error messages and logs.
func (l Layout) String() string {
	switch l {
	case LayoutUniversal:
		return "dd/mm/yy hh:mm:ss"
	case LayoutISO:
		return "yyyy-mm-dd hh:mm:ss"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

var (
	universalRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2}) (\d{2}):(\d{2}):(\d{2})$`)
	isoRe       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})$`)
)

// Parse matches raw against the given layout and returns the instant those
// wall-clock fields name in loc. A nil loc means UTC.
func Parse(raw string, layout Layout, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	var (
		re      *regexp.Regexp
		yearIdx int // submatch index of the year field
	)
	switch layout {
	case LayoutUniversal:
		re, yearIdx = universalRe, 3
	case LayoutISO:
		re, yearIdx = isoRe, 1
	default:
		return time.Time{}, fmt.Errorf("timefmt: unknown layout %d: %w", int(layout), deflow.ErrFormat)
	}

	m := re.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, fmt.Errorf("timefmt: %q does not match %q: %w", raw, layout, deflow.ErrFormat)
	}

	year := atoi(m[yearIdx])
	if layout == LayoutUniversal {
		year += 2000
	}

	var day, month int
	if layout == LayoutUniversal {
		day, month = atoi(m[1]), atoi(m[2])
	} else {
		month, day = atoi(m[2]), atoi(m[3])
	}
	hour, minute, second := atoi(m[4]), atoi(m[5]), atoi(m[6])

	if err := checkCalendar(year, month, day, hour, minute, second, raw); err != nil {
		return time.Time{}, err
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
}

// FormatUniversal renders t in the Universal layout ("dd/mm/yy hh:mm:ss")
// using t's own location. The inverse of Parse for years 2000–2099.
func FormatUniversal(t time.Time) string {
	return fmt.Sprintf("%02d/%02d/%02d %02d:%02d:%02d",
		t.Day(), int(t.Month()), t.Year()%100,
		t.Hour(), t.Minute(), t.Second())
}

// Location resolves an IANA timezone identifier. The empty string means UTC.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timefmt: unknown timezone %q: %w", name, deflow.ErrFormat)
	}
	return loc, nil
}

func checkCalendar(year, month, day, hour, minute, second int, raw string) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("timefmt: %q: month %d: %w", raw, month, deflow.ErrCalendar)
	}
	if day < 1 || day > daysIn(year, month) {
		return fmt.Errorf("timefmt: %q: day %d of month %d: %w", raw, day, month, deflow.ErrCalendar)
	}
	if hour > 23 {
		return fmt.Errorf("timefmt: %q: hour %d: %w", raw, hour, deflow.ErrCalendar)
	}
	if minute > 59 {
		return fmt.Errorf("timefmt: %q: minute %d: %w", raw, minute, deflow.ErrCalendar)
	}
	if second > 59 {
		return fmt.Errorf("timefmt: %q: second %d: %w", raw, second, deflow.ErrCalendar)
	}
	return nil
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysIn(year, month int) int {
	if month == 2 && isLeap(year) {
		return 29
	}
	return monthDays[month-1]
}

func isLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s) // digits guaranteed by the regexp
	return n
}
