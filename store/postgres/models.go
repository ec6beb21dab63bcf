package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

type scheduleModel struct {
	bun.BaseModel `bun:"table:deflow_schedules"`

	ID                  string `bun:"id,pk"`
	Mode                string `bun:"mode,notnull"`
	SpecJSON            []byte `bun:"spec_json,notnull,type:jsonb"`
	WorkflowID          string `bun:"workflow_id,notnull"`
	NodeID              string `bun:"node_id,notnull"`
	Status              string `bun:"status,notnull"`
	NextExecutionNS     *int64 `bun:"next_execution_ns"`
	LastExecutionNS     *int64 `bun:"last_execution_ns"`
	ExecutionCount      int    `bun:"execution_count,notnull,default:0"`
	ConsecutiveFailures int    `bun:"consecutive_failures,notnull,default:0"`
	CreatedAtNS         int64  `bun:"created_at_ns,notnull"`
	UpdatedAtNS         int64  `bun:"updated_at_ns,notnull"`
}

// specDoc is the persisted form of a Spec. The holiday set rides alongside
// the Spec's own JSON shape when the caller supplied a schedule.DateSet;
// other HolidaySet implementations cannot be persisted and are dropped on
// the round trip.
type specDoc struct {
	*schedule.Spec
	HolidayDates []string `json:"holiday_dates,omitempty"`
}

func toModel(s *schedule.Schedule) (*scheduleModel, error) {
	doc := specDoc{Spec: s.Spec}
	if ds, ok := s.Spec.Holidays.(schedule.DateSet); ok {
		doc.HolidayDates = ds.Dates()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("deflow/postgres: encode spec: %w", err)
	}

	m := &scheduleModel{
		ID:                  s.ID.String(),
		Mode:                s.Spec.Mode.String(),
		SpecJSON:            raw,
		WorkflowID:          s.WorkflowID,
		NodeID:              s.NodeID,
		Status:              s.Status.String(),
		ExecutionCount:      s.ExecutionCount,
		ConsecutiveFailures: s.ConsecutiveFailures,
		CreatedAtNS:         s.CreatedAt.UnixNano(),
		UpdatedAtNS:         s.UpdatedAt.UnixNano(),
	}
	if s.NextExecution != nil {
		ns := s.NextExecution.UnixNano()
		m.NextExecutionNS = &ns
	}
	if s.LastExecution != nil {
		ns := s.LastExecution.UnixNano()
		m.LastExecutionNS = &ns
	}
	return m, nil
}

func fromModel(m *scheduleModel) (*schedule.Schedule, error) {
	scheduleID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("deflow/postgres: parse schedule id %q: %w", m.ID, err)
	}

	var doc specDoc
	doc.Spec = new(schedule.Spec)
	if err := json.Unmarshal(m.SpecJSON, &doc); err != nil {
		return nil, fmt.Errorf("deflow/postgres: decode spec: %w", err)
	}
	if len(doc.HolidayDates) > 0 {
		doc.Spec.Holidays = schedule.NewDateSet(doc.HolidayDates...)
	}

	status, err := schedule.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	s := &schedule.Schedule{
		Entity: deflow.Entity{
			CreatedAt: time.Unix(0, m.CreatedAtNS).UTC(),
			UpdatedAt: time.Unix(0, m.UpdatedAtNS).UTC(),
		},
		ID:                  scheduleID,
		Spec:                doc.Spec,
		WorkflowID:          m.WorkflowID,
		NodeID:              m.NodeID,
		Status:              status,
		ExecutionCount:      m.ExecutionCount,
		ConsecutiveFailures: m.ConsecutiveFailures,
	}
	if m.NextExecutionNS != nil {
		t := time.Unix(0, *m.NextExecutionNS).UTC()
		s.NextExecution = &t
	}
	if m.LastExecutionNS != nil {
		t := time.Unix(0, *m.LastExecutionNS).UTC()
		s.LastExecution = &t
	}
	return s, nil
}
