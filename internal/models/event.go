package models

import (
	"time"
)

// Event types emitted by the entity store. Every committed entity mutation
// appends exactly one of these in the same transaction.
const (
	EventEntityCreated       = "entity.created"
	EventEntityUpdated       = "entity.updated"
	EventEntityStatusChanged = "entity.status_changed"
	EventEntityDeleted       = "entity.deleted"
)

// Event is an immutable, timestamped record of a single state transition.
// Rows are append-only: no update or delete path exists in the services, and
// the containerized deployment grants the service user no UPDATE/DELETE
// privilege on this table. Ordering is by (timestamp, id).
//
// Partition is a fixed-width month bucket derived from Timestamp. It exists
// for retention pruning only and is invisible to queries.
type Event struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement;index:idx_events_time_id,priority:2"`
	Timestamp  time.Time `gorm:"not null;index:idx_events_time_id,priority:1"`
	EventType  string    `gorm:"size:255;not null;index:idx_events_type"`
	EntityID   string    `gorm:"size:36;not null;index:idx_events_entity"`
	EntityType string    `gorm:"size:255;not null"`
	Data       JSON      `gorm:"type:json"`
	Metadata   JSON      `gorm:"type:json"`
	Source     string    `gorm:"size:255"`
	Partition  string    `gorm:"size:7;not null;index:idx_events_partition"`
}

// TableName overrides the table name for Event
func (Event) TableName() string {
	return "events"
}

// PartitionKey computes the month bucket an event timestamp falls into.
func PartitionKey(ts time.Time) string {
	return ts.UTC().Format("2006-01")
}
