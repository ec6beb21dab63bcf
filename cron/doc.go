// Package cron parses five-field cron expressions and computes the next
// matching instant.
//
// # Grammar
//
// An expression has five whitespace-separated fields: minute (0–59),
// hour (0–23), day-of-month (1–31), month (1–12), and weekday (0–6,
// 0 = Sunday). Each field is one of:
//   - "*"        any value
//   - "n"        a single value
//   - "a,b,c"    a list of values
//   - "a-b"      an inclusive range
//   - "*/s"      every s-th value over the whole field
//   - "a-b/s"    every s-th value within a range
//
// Per POSIX semantics, when both day-of-month and weekday are restricted
// (not "*"), an instant matches when either field matches; when only one
// is restricted, that field alone decides.
//
// # Evaluation
//
// [Expression.NextAfter] scans forward minute by minute from the given
// instant (exclusive) using ordinary calendar increment, so month lengths
// and leap years fall out of the scan rather than being special-cased. The
// scan is bounded at four years; an expression with no match inside the
// bound (for example day 30 in February) fails with deflow.ErrNoCronMatch,
// which guarantees termination for contradictory expressions.
package cron
