package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

const scheduleColumns = `id, mode, spec_json, workflow_id, node_id, status,
	next_execution_ns, last_execution_ns, execution_count,
	consecutive_failures, created_at_ns, updated_at_ns`

// CreateSchedule persists a new schedule.
func (s *Store) CreateSchedule(ctx context.Context, sched *schedule.Schedule) error {
	row, err := toRow(sched)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schedules (`+scheduleColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.ID, row.Mode, row.SpecJSON, row.WorkflowID, row.NodeID, row.Status,
		row.NextExecutionNS, row.LastExecutionNS, row.ExecutionCount,
		row.ConsecutiveFailures, row.CreatedAtNS, row.UpdatedAtNS,
	)
	if err != nil {
		return fmt.Errorf("deflow/sqlite: create schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`,
		scheduleID.String(),
	)

	sched, err := scanSchedule(row)
	if err != nil {
		if isNoRows(err) {
			return nil, deflow.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("deflow/sqlite: get schedule: %w", err)
	}
	return sched, nil
}

// ListSchedules returns all schedules ordered by creation time.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at_ns ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("deflow/sqlite: list schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// DueSchedules returns pending schedules due at or before now, soonest
// first.
func (s *Store) DueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE status = ? AND next_execution_ns IS NOT NULL AND next_execution_ns <= ?
		 ORDER BY next_execution_ns ASC`,
		schedule.StatusPending.String(), now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("deflow/sqlite: due schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// UpdateSchedule persists changes to an existing schedule.
func (s *Store) UpdateSchedule(ctx context.Context, sched *schedule.Schedule) error {
	row, err := toRow(sched)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET
			mode = ?, spec_json = ?, workflow_id = ?, node_id = ?, status = ?,
			next_execution_ns = ?, last_execution_ns = ?, execution_count = ?,
			consecutive_failures = ?, updated_at_ns = ?
		 WHERE id = ?`,
		row.Mode, row.SpecJSON, row.WorkflowID, row.NodeID, row.Status,
		row.NextExecutionNS, row.LastExecutionNS, row.ExecutionCount,
		row.ConsecutiveFailures, row.UpdatedAtNS, row.ID,
	)
	if err != nil {
		return fmt.Errorf("deflow/sqlite: update schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return deflow.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM schedules WHERE id = ?`, scheduleID.String(),
	)
	if err != nil {
		return fmt.Errorf("deflow/sqlite: delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return deflow.ErrScheduleNotFound
	}
	return nil
}

// ClaimFiring atomically moves a due pending schedule to firing. The
// row-level update is the at-most-once gate: a second claim for the same
// instant finds the status already changed and returns false.
func (s *Store) ClaimFiring(ctx context.Context, scheduleID id.ScheduleID, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET status = ?, updated_at_ns = ?
		 WHERE id = ? AND status = ?
		   AND next_execution_ns IS NOT NULL AND next_execution_ns <= ?`,
		schedule.StatusFiring.String(), now.UnixNano(),
		scheduleID.String(), schedule.StatusPending.String(), now.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("deflow/sqlite: claim firing: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}

	// Lost claims and unknown schedules look the same to the update;
	// distinguish them so callers see NotFound for the latter.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM schedules WHERE id = ?`, scheduleID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("deflow/sqlite: check schedule exists: %w", err)
	}
	if exists == 0 {
		return false, deflow.ErrScheduleNotFound
	}
	return false, nil
}

// ResolveFiring persists the post-fire state only while the row is still
// firing. Returns false when a cancel moved the schedule out of the
// firing state first; the cancel wins.
func (s *Store) ResolveFiring(ctx context.Context, sched *schedule.Schedule) (bool, error) {
	row, err := toRow(sched)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET
			mode = ?, spec_json = ?, workflow_id = ?, node_id = ?, status = ?,
			next_execution_ns = ?, last_execution_ns = ?, execution_count = ?,
			consecutive_failures = ?, updated_at_ns = ?
		 WHERE id = ? AND status = ?`,
		row.Mode, row.SpecJSON, row.WorkflowID, row.NodeID, row.Status,
		row.NextExecutionNS, row.LastExecutionNS, row.ExecutionCount,
		row.ConsecutiveFailures, row.UpdatedAtNS, row.ID,
		schedule.StatusFiring.String(),
	)
	if err != nil {
		return false, fmt.Errorf("deflow/sqlite: resolve firing: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}

	// Lost resolutions and unknown schedules look the same to the update;
	// distinguish them so callers see NotFound for the latter.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM schedules WHERE id = ?`, row.ID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("deflow/sqlite: check schedule exists: %w", err)
	}
	if exists == 0 {
		return false, deflow.ErrScheduleNotFound
	}
	return false, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(sc scanner) (*schedule.Schedule, error) {
	var row scheduleRow
	err := sc.Scan(
		&row.ID, &row.Mode, &row.SpecJSON, &row.WorkflowID, &row.NodeID,
		&row.Status, &row.NextExecutionNS, &row.LastExecutionNS,
		&row.ExecutionCount, &row.ConsecutiveFailures,
		&row.CreatedAtNS, &row.UpdatedAtNS,
	)
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func collectSchedules(rows *sql.Rows) ([]*schedule.Schedule, error) {
	var out []*schedule.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("deflow/sqlite: scan schedule: %w", err)
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deflow/sqlite: iterate schedules: %w", err)
	}
	return out, nil
}
