package schedule

import (
	"fmt"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
)

// Status is a schedule's position in its lifecycle.
type Status int

const (
	// StatusPending waits for its next execution instant.
	StatusPending Status = iota
	// StatusFiring is the transient state between being claimed as due
	// and its trigger outcome being recorded.
	StatusFiring
	// StatusCompleted exhausted its executions or its bounds. Terminal.
	StatusCompleted
	// StatusFailed exhausted its retries. Terminal.
	StatusFailed
	// StatusCancelled was cancelled by a caller. Terminal.
	StatusCancelled
)

// String returns the status name used in logs and stores.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFiring:
		return "firing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus maps a stored status name back to its Status. The durable
// stores use it when rebuilding schedules from rows.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "pending":
		return StatusPending, nil
	case "firing":
		return StatusFiring, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return 0, fmt.Errorf("schedule: unknown status %q: %w", name, deflow.ErrInvalidState)
	}
}

// Terminal reports whether the status can never fire again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Schedule pairs a validated Spec with workflow references and live
// execution state. Owned by the Registry: callers receive copies.
type Schedule struct {
	deflow.Entity

	ID   id.ScheduleID `json:"id"`
	Spec *Spec         `json:"spec"`

	// WorkflowID and NodeID are opaque references handed to the trigger;
	// the engine never interprets them.
	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`

	Status Status `json:"status"`

	// NextExecution is absent exactly when the schedule is terminal.
	NextExecution *time.Time `json:"next_execution,omitempty"`
	LastExecution *time.Time `json:"last_execution,omitempty"`

	// ExecutionCount counts successful fires. Never exceeds
	// Spec.MaxExecutions when that is set.
	ExecutionCount int `json:"execution_count"`

	// ConsecutiveFailures counts trigger failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`
}

// Active reports whether the schedule can still fire.
func (s *Schedule) Active() bool {
	return s.NextExecution != nil
}

// Due reports whether the schedule should fire at or before now.
func (s *Schedule) Due(now time.Time) bool {
	return s.Status == StatusPending && s.NextExecution != nil && !s.NextExecution.After(now)
}

// Clone returns a copy safe for callers to hold. The Spec pointer is
// shared: specs are immutable.
func (s *Schedule) Clone() *Schedule {
	cp := *s
	if s.NextExecution != nil {
		t := *s.NextExecution
		cp.NextExecution = &t
	}
	if s.LastExecution != nil {
		t := *s.LastExecution
		cp.LastExecution = &t
	}
	return &cp
}
