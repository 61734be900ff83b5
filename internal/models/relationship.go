package models

import (
	"time"
)

// Relationship is a directed, typed, temporally-scoped edge between two
// entities. An edge is currently valid while ValidTo is NULL or in the
// future; disconnecting sets ValidTo, it never deletes the row.
type Relationship struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement"`
	FromEntityID     string  `gorm:"size:36;not null;index:idx_relationships_from"`
	ToEntityID       string  `gorm:"size:36;not null;index:idx_relationships_to"`
	RelationshipType string  `gorm:"size:255;not null;index:idx_relationships_type"`
	Properties       JSON    `gorm:"type:json"`
	Strength         float64 `gorm:"not null"`
	ValidFrom        time.Time
	ValidTo          *time.Time `gorm:"index:idx_relationships_valid_to"`
	CreatedBy        string     `gorm:"size:255"`
	CreatedAt        time.Time
}

// TableName overrides the table name for Relationship
func (Relationship) TableName() string {
	return "relationships"
}

// CurrentlyValid reports whether the edge is open at instant now.
func (r *Relationship) CurrentlyValid(now time.Time) bool {
	return r.ValidTo == nil || r.ValidTo.After(now)
}
