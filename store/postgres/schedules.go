package postgres

import (
	"context"
	"fmt"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// CreateSchedule persists a new schedule.
func (s *Store) CreateSchedule(ctx context.Context, sched *schedule.Schedule) error {
	m, err := toModel(sched)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("deflow/postgres: create schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Schedule, error) {
	m := new(scheduleModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", scheduleID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, deflow.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("deflow/postgres: get schedule: %w", err)
	}
	return fromModel(m)
}

// ListSchedules returns all schedules ordered by creation time.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Schedule, error) {
	var models []scheduleModel
	err := s.db.NewSelect().Model(&models).
		Order("created_at_ns ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("deflow/postgres: list schedules: %w", err)
	}
	return convertModels(models)
}

// DueSchedules returns pending schedules due at or before now, soonest
// first.
func (s *Store) DueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	var models []scheduleModel
	err := s.db.NewSelect().Model(&models).
		Where("status = ?", schedule.StatusPending.String()).
		Where("next_execution_ns IS NOT NULL").
		Where("next_execution_ns <= ?", now.UnixNano()).
		Order("next_execution_ns ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("deflow/postgres: due schedules: %w", err)
	}
	return convertModels(models)
}

// UpdateSchedule persists changes to an existing schedule.
func (s *Store) UpdateSchedule(ctx context.Context, sched *schedule.Schedule) error {
	m, err := toModel(sched)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("deflow/postgres: update schedule: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return deflow.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	res, err := s.db.NewDelete().
		Model((*scheduleModel)(nil)).
		Where("id = ?", scheduleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deflow/postgres: delete schedule: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return deflow.ErrScheduleNotFound
	}
	return nil
}

// ClaimFiring atomically moves a due pending schedule to firing. The
// row-level update is the at-most-once gate across all engine replicas
// sharing the database.
func (s *Store) ClaimFiring(ctx context.Context, scheduleID id.ScheduleID, now time.Time) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*scheduleModel)(nil)).
		Set("status = ?", schedule.StatusFiring.String()).
		Set("updated_at_ns = ?", now.UnixNano()).
		Where("id = ?", scheduleID.String()).
		Where("status = ?", schedule.StatusPending.String()).
		Where("next_execution_ns IS NOT NULL").
		Where("next_execution_ns <= ?", now.UnixNano()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("deflow/postgres: claim firing: %w", err)
	}

	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows > 0 {
		return true, nil
	}

	// Lost claims and unknown schedules look the same to the update;
	// distinguish them so callers see NotFound for the latter.
	exists, err := s.db.NewSelect().
		Model((*scheduleModel)(nil)).
		Where("id = ?", scheduleID.String()).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("deflow/postgres: check schedule exists: %w", err)
	}
	if !exists {
		return false, deflow.ErrScheduleNotFound
	}
	return false, nil
}

// ResolveFiring persists the post-fire state only while the row is still
// firing. Returns false when a cancel moved the schedule out of the
// firing state first; the cancel wins.
func (s *Store) ResolveFiring(ctx context.Context, sched *schedule.Schedule) (bool, error) {
	m, err := toModel(sched)
	if err != nil {
		return false, err
	}

	res, err := s.db.NewUpdate().Model(m).
		WherePK().
		Where("status = ?", schedule.StatusFiring.String()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("deflow/postgres: resolve firing: %w", err)
	}

	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows > 0 {
		return true, nil
	}

	// Lost resolutions and unknown schedules look the same to the update;
	// distinguish them so callers see NotFound for the latter.
	exists, err := s.db.NewSelect().
		Model((*scheduleModel)(nil)).
		Where("id = ?", m.ID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("deflow/postgres: check schedule exists: %w", err)
	}
	if !exists {
		return false, deflow.ErrScheduleNotFound
	}
	return false, nil
}

func convertModels(models []scheduleModel) ([]*schedule.Schedule, error) {
	out := make([]*schedule.Schedule, 0, len(models))
	for i := range models {
		sched, err := fromModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}
