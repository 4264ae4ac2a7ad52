package types

import "time"

// Entity carries creation and modification timestamps for mutable records.
type Entity struct {
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// NewEntityAt creates an Entity with both timestamps set to t in UTC.
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// TouchAt sets UpdatedAt to t in UTC.
func (e *Entity) TouchAt(t time.Time) {
	e.UpdatedAt = t.UTC()
}
