package models

import (
	"time"
)

// SchemaDocument is a versioned, time-bounded declaration of the required
// shape of an entity type's properties. For a given EntityType at most one
// row has ValidTo = NULL (the active version); once ValidTo is set the row is
// immutable and kept for audit.
type SchemaDocument struct {
	ID          string `gorm:"primaryKey;size:255"`
	EntityType  string `gorm:"size:255;not null;index:idx_schema_documents_type;uniqueIndex:uniq_schema_type_version"`
	Version     uint64 `gorm:"not null;uniqueIndex:uniq_schema_type_version"`
	Definition  JSON   `gorm:"type:json"`
	Description string `gorm:"size:1024"`
	ValidFrom   time.Time
	ValidTo     *time.Time `gorm:"index:idx_schema_documents_valid_to"`
	CreatedBy   string     `gorm:"size:255"`
	CreatedAt   time.Time
}

// TableName overrides the table name for SchemaDocument
func (SchemaDocument) TableName() string {
	return "schema_documents"
}

// Active reports whether this document is the open (current) version.
func (s *SchemaDocument) Active() bool {
	return s.ValidTo == nil
}
