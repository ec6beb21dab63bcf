package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// scheduleRow mirrors the schedules table.
type scheduleRow struct {
	ID                  string
	Mode                string
	SpecJSON            string
	WorkflowID          string
	NodeID              string
	Status              string
	NextExecutionNS     sql.NullInt64
	LastExecutionNS     sql.NullInt64
	ExecutionCount      int
	ConsecutiveFailures int
	CreatedAtNS         int64
	UpdatedAtNS         int64
}

// specDoc is the persisted form of a Spec. The holiday set is not part of
// the Spec's own JSON shape, so it rides alongside when the caller supplied
// a schedule.DateSet; other HolidaySet implementations cannot be persisted
// and are dropped on the round trip.
type specDoc struct {
	*schedule.Spec
	HolidayDates []string `json:"holiday_dates,omitempty"`
}

func toRow(s *schedule.Schedule) (*scheduleRow, error) {
	doc := specDoc{Spec: s.Spec}
	if ds, ok := s.Spec.Holidays.(schedule.DateSet); ok {
		doc.HolidayDates = ds.Dates()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("deflow/sqlite: encode spec: %w", err)
	}

	row := &scheduleRow{
		ID:                  s.ID.String(),
		Mode:                s.Spec.Mode.String(),
		SpecJSON:            string(raw),
		WorkflowID:          s.WorkflowID,
		NodeID:              s.NodeID,
		Status:              s.Status.String(),
		ExecutionCount:      s.ExecutionCount,
		ConsecutiveFailures: s.ConsecutiveFailures,
		CreatedAtNS:         s.CreatedAt.UnixNano(),
		UpdatedAtNS:         s.UpdatedAt.UnixNano(),
	}
	if s.NextExecution != nil {
		row.NextExecutionNS = sql.NullInt64{Int64: s.NextExecution.UnixNano(), Valid: true}
	}
	if s.LastExecution != nil {
		row.LastExecutionNS = sql.NullInt64{Int64: s.LastExecution.UnixNano(), Valid: true}
	}
	return row, nil
}

func fromRow(row *scheduleRow) (*schedule.Schedule, error) {
	scheduleID, err := id.ParseScheduleID(row.ID)
	if err != nil {
		return nil, fmt.Errorf("deflow/sqlite: decode schedule id: %w", err)
	}

	var doc specDoc
	doc.Spec = new(schedule.Spec)
	if err := json.Unmarshal([]byte(row.SpecJSON), &doc); err != nil {
		return nil, fmt.Errorf("deflow/sqlite: decode spec: %w", err)
	}
	if len(doc.HolidayDates) > 0 {
		doc.Spec.Holidays = schedule.NewDateSet(doc.HolidayDates...)
	}

	status, err := schedule.ParseStatus(row.Status)
	if err != nil {
		return nil, err
	}

	s := &schedule.Schedule{
		Entity: deflow.Entity{
			CreatedAt: time.Unix(0, row.CreatedAtNS).UTC(),
			UpdatedAt: time.Unix(0, row.UpdatedAtNS).UTC(),
		},
		ID:                  scheduleID,
		Spec:                doc.Spec,
		WorkflowID:          row.WorkflowID,
		NodeID:              row.NodeID,
		Status:              status,
		ExecutionCount:      row.ExecutionCount,
		ConsecutiveFailures: row.ConsecutiveFailures,
	}
	if row.NextExecutionNS.Valid {
		t := time.Unix(0, row.NextExecutionNS.Int64).UTC()
		s.NextExecution = &t
	}
	if row.LastExecutionNS.Valid {
		t := time.Unix(0, row.LastExecutionNS.Int64).UTC()
		s.LastExecution = &t
	}
	return s, nil
}
