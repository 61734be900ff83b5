package models

import (
	"time"
)

// Entity lifecycle statuses. "Deletion" is a transition to StatusDeleted;
// entity rows are never removed.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeleted  = "deleted"
)

// Entity is a polymorphic, schema-validated record stored by type tag and
// property bag. EntityType is immutable after creation and selects the schema
// document every write is validated against.
type Entity struct {
	ID          string  `gorm:"primaryKey;size:36"`
	EntityType  string  `gorm:"size:255;not null;index:idx_entities_type"`
	Name        string  `gorm:"size:255;not null"`
	Description string  `gorm:"size:1024"`
	Properties  JSON    `gorm:"type:json"`
	Status      string  `gorm:"size:32;not null;default:active;index:idx_entities_status"`
	TenantID    *string `gorm:"size:36;index:idx_entities_tenant"`
	IsActive    bool    `gorm:"not null;default:true"`
	Version     uint64  `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name for Entity
func (Entity) TableName() string {
	return "entities"
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeleted:
		return true
	}
	return false
}
