package audit

// Audit event actions. Each constant corresponds to one lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionScheduleFired     = "schedule.fired"
	ActionScheduleRetrying  = "schedule.retrying"
	ActionScheduleCompleted = "schedule.completed"
	ActionScheduleFailed    = "schedule.failed"
	ActionScheduleTerminal  = "schedule.terminal"
)

// Audit event categories group related actions.
const (
	CategorySchedule = "deflow.schedule"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceSchedule = "schedule"
)

// AllActions returns every action this hook can emit.
func AllActions() []string {
	return []string{
		ActionScheduleFired,
		ActionScheduleRetrying,
		ActionScheduleCompleted,
		ActionScheduleFailed,
		ActionScheduleTerminal,
	}
}
