// Package audit bridges schedule lifecycle events to an audit trail
// backend. Register the Hook with the engine and every fire, retry, and
// terminal transition becomes a structured audit event through a
// caller-supplied Recorder.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Legatia/DeFlow-sub000/hook"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Compile-time interface checks.
var (
	_ hook.Hook              = (*Hook)(nil)
	_ hook.ScheduleFired     = (*Hook)(nil)
	_ hook.ScheduleRetrying  = (*Hook)(nil)
	_ hook.ScheduleCompleted = (*Hook)(nil)
	_ hook.ScheduleFailed    = (*Hook)(nil)
	_ hook.ScheduleTerminal  = (*Hook)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so this package does not depend on any one audit
// product; callers inject their concrete emitter at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// Event is a local representation of an audit event.
type Event struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Hook emits a structured audit event for each schedule lifecycle event.
type Hook struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates a Hook that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Hook {
	h := &Hook{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements hook.Hook.
func (h *Hook) Name() string { return "audit" }

// OnScheduleFired implements hook.ScheduleFired.
func (h *Hook) OnScheduleFired(ctx context.Context, s *schedule.Schedule, elapsed time.Duration) error {
	return h.record(ctx, ActionScheduleFired, SeverityInfo, OutcomeSuccess, s.ID.String(), nil,
		"workflow_id", s.WorkflowID,
		"node_id", s.NodeID,
		"mode", s.Spec.Mode.String(),
		"execution_count", s.ExecutionCount,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnScheduleRetrying implements hook.ScheduleRetrying.
func (h *Hook) OnScheduleRetrying(ctx context.Context, s *schedule.Schedule, attempt int, retryAt time.Time) error {
	return h.record(ctx, ActionScheduleRetrying, SeverityWarning, OutcomeFailure, s.ID.String(), nil,
		"workflow_id", s.WorkflowID,
		"node_id", s.NodeID,
		"attempt", attempt,
		"retry_at", retryAt.Format(time.RFC3339),
	)
}

// OnScheduleCompleted implements hook.ScheduleCompleted.
func (h *Hook) OnScheduleCompleted(ctx context.Context, s *schedule.Schedule) error {
	return h.record(ctx, ActionScheduleCompleted, SeverityInfo, OutcomeSuccess, s.ID.String(), nil,
		"workflow_id", s.WorkflowID,
		"node_id", s.NodeID,
		"execution_count", s.ExecutionCount,
	)
}

// OnScheduleFailed implements hook.ScheduleFailed.
func (h *Hook) OnScheduleFailed(ctx context.Context, s *schedule.Schedule, scheduleErr error) error {
	return h.record(ctx, ActionScheduleFailed, SeverityCritical, OutcomeFailure, s.ID.String(), scheduleErr,
		"workflow_id", s.WorkflowID,
		"node_id", s.NodeID,
		"consecutive_failures", s.ConsecutiveFailures,
	)
}

// OnScheduleTerminal implements hook.ScheduleTerminal.
func (h *Hook) OnScheduleTerminal(ctx context.Context, s *schedule.Schedule) error {
	return h.record(ctx, ActionScheduleTerminal, SeverityInfo, OutcomeSuccess, s.ID.String(), nil,
		"workflow_id", s.WorkflowID,
		"node_id", s.NodeID,
		"status", s.Status.String(),
	)
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
// Recorder failures are logged, never propagated: a broken audit backend
// must not disturb dispatch.
func (h *Hook) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceID string,
	err error,
	kvPairs ...any,
) error {
	if h.enabled != nil && !h.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &Event{
		Action:     action,
		Resource:   ResourceSchedule,
		Category:   CategorySchedule,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := h.recorder.Record(ctx, evt); recErr != nil {
		h.logger.Warn("audit: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
