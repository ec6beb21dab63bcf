package deflow

import "time"

// Entity carries the timestamps shared by every persisted record.
// Embed it in storable types.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// NewEntityAt returns an Entity stamped with the given instant.
// Used when the caller owns the clock (registry creation, tests).
func NewEntityAt(at time.Time) Entity {
	return Entity{CreatedAt: at, UpdatedAt: at}
}

// Touch updates the modification timestamp.
func (e *Entity) Touch(at time.Time) {
	e.UpdatedAt = at
}
