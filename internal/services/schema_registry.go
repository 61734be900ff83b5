// schema_registry.go
//
// A polymorphic, schema-validated entity store over SQL
// Copyright (c) 2026 LocalForge contributors (https://github.com/localforge)
//
// This file is part of entitydb.
// entitydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// entitydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with entitydb.
// If not, see <https://www.gnu.org/licenses/>.

package services

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/localforge/entitydb/internal/models"
	"github.com/localforge/entitydb/internal/types"
	"github.com/localforge/entitydb/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RegisterSchemaInput is the externally-authored schema document handed to
// the registry. Version is assigned by the registry, never by the caller.
type RegisterSchemaInput struct {
	ID          string                `json:"id"`
	EntityType  string                `json:"entity_type"`
	Definition  validation.Definition `json:"definition"`
	Description string                `json:"description,omitempty"`
	CreatedBy   string                `json:"created_by,omitempty"`
}

// RegisterSchema publishes a schema document. Publishing retires the previous
// active version for the entity type (sets its valid_to) and inserts the new
// one as a single transaction, serialized per entity type by row locks.
//
// Re-registering an existing id with an identical definition is a no-op so
// setup scripts stay repeatable. The same id with a different definition is
// rejected with ErrSchemaConflict.
func RegisterSchema(db *gorm.DB, in RegisterSchemaInput) (*models.SchemaDocument, error) {
	if in.ID == "" || in.EntityType == "" {
		return nil, fmt.Errorf("%w: schema id and entity_type are required", types.ErrInvalidInput)
	}

	raw, err := validation.EncodeDefinition(in.Definition)
	if err != nil {
		return nil, err
	}
	// Round-trip through the decoder so malformed rules fail at registration.
	if _, err := validation.DecodeDefinition(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}

	var result *models.SchemaDocument
	err = db.Transaction(func(tx *gorm.DB) error {
		// Serialize publishes for this entity type on the existing rows.
		var history []models.SchemaDocument
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("entity_type = ?", in.EntityType).
			Order("version ASC").
			Find(&history).Error; err != nil {
			return err
		}

		var maxVersion uint64
		var active *models.SchemaDocument
		activeCount := 0
		for i := range history {
			doc := &history[i]
			if doc.ID == in.ID {
				return reRegister(doc, in.Definition)
			}
			if doc.Version > maxVersion {
				maxVersion = doc.Version
			}
			if doc.Active() {
				active = doc
				activeCount++
			}
		}
		if activeCount > 1 {
			return fmt.Errorf("%w: %d active schema documents for entity type %q",
				types.ErrIntegrity, activeCount, in.EntityType)
		}

		// The same id may exist under another entity type; that is a
		// conflict too, the primary key spans all types.
		var count int64
		if err := tx.Model(&models.SchemaDocument{}).Where("id = ?", in.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: id %q registered under another entity type", types.ErrSchemaConflict, in.ID)
		}

		now := time.Now().UTC()

		if active != nil {
			retired := tx.Model(&models.SchemaDocument{}).
				Where("id = ? AND valid_to IS NULL", active.ID).
				Update("valid_to", now)
			if retired.Error != nil {
				return retired.Error
			}
			if retired.RowsAffected == 0 {
				return fmt.Errorf("%w: active schema %q changed during publish", types.ErrConcurrentModification, active.ID)
			}
		}

		doc := models.SchemaDocument{
			ID:          in.ID,
			EntityType:  in.EntityType,
			Version:     maxVersion + 1,
			Definition:  models.JSON{JSON: raw},
			Description: in.Description,
			ValidFrom:   now,
			CreatedBy:   in.CreatedBy,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}

		result = &doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reRegister resolves a publish whose id already exists: identical definition
// means idempotent success, anything else is a conflict.
func reRegister(existing *models.SchemaDocument, definition validation.Definition) error {
	stored, err := validation.DecodeDefinition(existing.Definition.JSON)
	if err != nil {
		return fmt.Errorf("%w: stored definition for %q is unreadable", types.ErrIntegrity, existing.ID)
	}
	if reflect.DeepEqual(stored, definition) {
		return nil
	}
	return fmt.Errorf("%w: id %q", types.ErrSchemaConflict, existing.ID)
}

// GetActiveSchema returns the unique schema document for an entity type whose
// validity window is still open. Two open documents is a corruption state and
// surfaces as ErrIntegrity, never resolved by picking the latest.
func GetActiveSchema(db *gorm.DB, entityType string) (*models.SchemaDocument, error) {
	var docs []models.SchemaDocument
	if err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("entity_type = ? AND valid_to IS NULL", entityType).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, fmt.Errorf("%w: %q", types.ErrSchemaNotFound, entityType)
	case 1:
		return &docs[0], nil
	}
	return nil, fmt.Errorf("%w: %d active schema documents for entity type %q",
		types.ErrIntegrity, len(docs), entityType)
}

// GetSchemaVersion returns one historical schema document.
func GetSchemaVersion(db *gorm.DB, entityType string, version uint64) (*models.SchemaDocument, error) {
	var doc models.SchemaDocument
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("entity_type = ? AND version = ?", entityType, version).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: schema %s v%d", types.ErrNotFound, entityType, version)
		}
		return nil, err
	}
	return &doc, nil
}

// ListSchemaHistory returns every schema version for an entity type, oldest
// first. Retired documents remain queryable for audit.
func ListSchemaHistory(db *gorm.DB, entityType string) ([]models.SchemaDocument, error) {
	var docs []models.SchemaDocument
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("entity_type = ?", entityType).
		Order("version ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// activeDefinition resolves and decodes the active schema for an entity type.
func activeDefinition(db *gorm.DB, entityType string) (validation.Definition, *models.SchemaDocument, error) {
	doc, err := GetActiveSchema(db, entityType)
	if err != nil {
		return nil, nil, err
	}
	def, err := validation.DecodeDefinition(doc.Definition.JSON)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: stored definition for %q is unreadable", types.ErrIntegrity, doc.ID)
	}
	return def, doc, nil
}
