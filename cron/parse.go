package cron

import (
	"fmt"
	"strconv"
	"strings"

	deflow "github.com/Legatia/DeFlow-sub000"
)

// fieldSpec names a cron position and its value bounds.
type fieldSpec struct {
	name   string
	lo, hi int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// Parse parses a five-field cron expression. Any grammar violation
// (wrong field count, malformed token, value outside the field's
// bounds) fails with deflow.ErrFormat.
func Parse(raw string) (Expression, error) {
	parts := strings.Fields(raw)
	if len(parts) != 5 {
		return Expression{}, fmt.Errorf("cron: %q has %d fields, want 5 (minute hour day month weekday): %w",
			raw, len(parts), deflow.ErrFormat)
	}

	var fields [5]Field
	for i, part := range parts {
		f, err := parseField(part, fieldSpecs[i])
		if err != nil {
			return Expression{}, err
		}
		fields[i] = f
	}

	return Expression{
		Minute: fields[0],
		Hour:   fields[1],
		Dom:    fields[2],
		Month:  fields[3],
		Dow:    fields[4],
		raw:    strings.Join(parts, " "),
	}, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded expressions.
func MustParse(raw string) Expression {
	expr, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("cron: must parse %q: %v", raw, err))
	}
	return expr
}

func parseField(s string, spec fieldSpec) (Field, error) {
	if s == "*" {
		return Field{Kind: KindAny}, nil
	}

	if base, stepStr, ok := strings.Cut(s, "/"); ok {
		return parseStep(base, stepStr, spec)
	}

	if strings.Contains(s, ",") {
		return parseList(s, spec)
	}

	if strings.Contains(s, "-") {
		lo, hi, err := parseRange(s, spec)
		if err != nil {
			return Field{}, err
		}
		return Field{Kind: KindRange, Lo: lo, Hi: hi, Step: 1}, nil
	}

	v, err := parseValue(s, spec)
	if err != nil {
		return Field{}, err
	}
	return Field{Kind: KindSingle, Values: []int{v}}, nil
}

func parseStep(base, stepStr string, spec fieldSpec) (Field, error) {
	step, err := strconv.Atoi(stepStr)
	if err != nil || step < 1 {
		return Field{}, fmt.Errorf("cron: %s: step %q must be a positive integer: %w",
			spec.name, stepStr, deflow.ErrFormat)
	}

	var lo, hi int
	switch {
	case base == "*":
		lo, hi = spec.lo, spec.hi
	case strings.Contains(base, "-"):
		var rErr error
		lo, hi, rErr = parseRange(base, spec)
		if rErr != nil {
			return Field{}, rErr
		}
	default:
		return Field{}, fmt.Errorf("cron: %s: step base %q must be \"*\" or a range: %w",
			spec.name, base, deflow.ErrFormat)
	}

	return Field{Kind: KindStep, Lo: lo, Hi: hi, Step: step}, nil
}

func parseList(s string, spec fieldSpec) (Field, error) {
	items := strings.Split(s, ",")
	values := make([]int, 0, len(items))
	for _, item := range items {
		v, err := parseValue(item, spec)
		if err != nil {
			return Field{}, err
		}
		values = append(values, v)
	}
	return Field{Kind: KindList, Values: values}, nil
}

func parseRange(s string, spec fieldSpec) (lo, hi int, err error) {
	loStr, hiStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("cron: %s: %q is not a range: %w", spec.name, s, deflow.ErrFormat)
	}

	lo, err = parseValue(loStr, spec)
	if err != nil {
		return 0, 0, err
	}
	hi, err = parseValue(hiStr, spec)
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("cron: %s: range %q is inverted: %w", spec.name, s, deflow.ErrFormat)
	}
	return lo, hi, nil
}

func parseValue(s string, spec fieldSpec) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("cron: %s: %q is not an integer: %w", spec.name, s, deflow.ErrFormat)
	}
	if v < spec.lo || v > spec.hi {
		return 0, fmt.Errorf("cron: %s: %d outside %d–%d: %w", spec.name, v, spec.lo, spec.hi, deflow.ErrFormat)
	}
	return v, nil
}
