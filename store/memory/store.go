// Package memory provides a fully in-memory schedule store. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/id"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Ensure Store implements the persistence contract at compile time.
var _ schedule.Store = (*Store)(nil)

// Store is an in-memory implementation of schedule.Store.
type Store struct {
	mu        sync.RWMutex
	schedules map[string]*schedule.Schedule
}

// New returns a new empty Store.
func New() *Store {
	return &Store{schedules: make(map[string]*schedule.Schedule)}
}

// CreateSchedule persists a new schedule.
func (m *Store) CreateSchedule(_ context.Context, s *schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[s.ID.String()] = s.Clone()
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (m *Store) GetSchedule(_ context.Context, scheduleID id.ScheduleID) (*schedule.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schedules[scheduleID.String()]
	if !ok {
		return nil, deflow.ErrScheduleNotFound
	}
	return s.Clone(), nil
}

// ListSchedules returns a snapshot of all schedules.
func (m *Store) ListSchedules(_ context.Context) ([]*schedule.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*schedule.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s.Clone())
	}
	return out, nil
}

// DueSchedules returns pending schedules due at or before now, soonest
// first.
func (m *Store) DueSchedules(_ context.Context, now time.Time) ([]*schedule.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*schedule.Schedule
	for _, s := range m.schedules {
		if s.Due(now) {
			due = append(due, s.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextExecution.Before(*due[j].NextExecution)
	})
	return due, nil
}

// UpdateSchedule persists changes to an existing schedule.
func (m *Store) UpdateSchedule(_ context.Context, s *schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.ID.String()
	if _, ok := m.schedules[key]; !ok {
		return deflow.ErrScheduleNotFound
	}
	m.schedules[key] = s.Clone()
	return nil
}

// DeleteSchedule removes a schedule by ID.
func (m *Store) DeleteSchedule(_ context.Context, scheduleID id.ScheduleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scheduleID.String()
	if _, ok := m.schedules[key]; !ok {
		return deflow.ErrScheduleNotFound
	}
	delete(m.schedules, key)
	return nil
}

// ClaimFiring atomically moves a due pending schedule to firing. Returns
// false when the schedule is not pending or no longer due at now; the
// claim is the at-most-once gate, so those are not errors.
func (m *Store) ClaimFiring(_ context.Context, scheduleID id.ScheduleID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[scheduleID.String()]
	if !ok {
		return false, deflow.ErrScheduleNotFound
	}
	if !s.Due(now) {
		return false, nil
	}

	s.Status = schedule.StatusFiring
	s.Touch(now)
	return true, nil
}

// ResolveFiring persists the post-fire state only while the stored
// schedule is still firing. Returns false when a cancel moved the
// schedule out of the firing state first; the cancel wins.
func (m *Store) ResolveFiring(_ context.Context, s *schedule.Schedule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.ID.String()
	current, ok := m.schedules[key]
	if !ok {
		return false, deflow.ErrScheduleNotFound
	}
	if current.Status != schedule.StatusFiring {
		return false, nil
	}

	m.schedules[key] = s.Clone()
	return true, nil
}
