// Package schedule owns the schedule model: the immutable Spec produced by
// validating creation input, the mutable Schedule entity, the
// next-execution calculator, the Store persistence contract, and the
// Registry that coordinates them.
//
// # Spec and Schedule
//
// A [Spec] is the canonical, validated form of a user's timing intent —
// one-time, recurring, or cron — plus bounding (max executions, end
// instant) and adjustment flags (skip weekends, skip holidays, retry
// policy). Build one with [Build]; a Spec is never mutated afterwards.
//
// A [Schedule] pairs a Spec with workflow/node references and live
// execution state. Schedules are created and mutated only through the
// [Registry]: creation computes the first execution instant, the
// dispatcher's sweep claims due schedules and records outcomes through
// [Registry.Advance], and cancellation flips them terminal.
//
// # State machine
//
// A schedule moves Pending → Firing → {Pending | Completed | Failed},
// never backwards; Cancelled can be entered from any non-terminal state.
// A schedule is terminal exactly when it has no next execution.
package schedule
