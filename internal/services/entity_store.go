// entity_store.go
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

	"github.com/google/uuid"
	"github.com/localforge/entitydb/internal/models"
	"github.com/localforge/entitydb/internal/types"
	"github.com/localforge/entitydb/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TenantEntityTypes are the entity types a tenant_id may reference.
// UpdateRetries bounds the re-read/re-validate/re-write loop on optimistic
// conflicts. Both are set once at startup from configuration.
var (
	TenantEntityTypes = []string{"organization", "tenant"}
	UpdateRetries     = 3
)

// CreateEntityInput is the caller-supplied shape of a new entity.
type CreateEntityInput struct {
	EntityType  string                 `json:"entity_type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]interface{} `json:"properties"`
	TenantID    *string                `json:"tenant_id,omitempty"`
	Source      string                 `json:"source,omitempty"`
}

// EntityFilter selects and paginates an entity scan. AfterID restarts a scan
// after the given id; results are ascending by id.
type EntityFilter struct {
	EntityType string
	TenantID   string
	Status     string
	AfterID    string
	Limit      int
}

// CreateEntity validates the candidate properties against the currently
// active schema for the entity type and, on success, writes the entity row
// and its entity.created event in one transaction. A validation failure
// discards the whole candidate: no partial application, no rows, no event.
func CreateEntity(db *gorm.DB, in CreateEntityInput) (*models.Entity, error) {
	if in.EntityType == "" {
		return nil, fmt.Errorf("%w: entity_type is required", types.ErrInvalidInput)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", types.ErrInvalidInput)
	}
	if in.Properties == nil {
		in.Properties = map[string]interface{}{}
	}

	var entity *models.Entity
	err := db.Transaction(func(tx *gorm.DB) error {
		// Schema lookup, validation, entity write, and event append are one
		// atomic unit.
		def, _, err := activeDefinition(tx, in.EntityType)
		if err != nil {
			return err
		}
		// Declared defaults fill absent fields at creation time only; updates
		// operate on the stored bag as-is.
		candidate := validation.ApplyDefaults(in.Properties, def)
		if violations := validation.Validate(candidate, def); len(violations) > 0 {
			return &types.ValidationError{Violations: violations}
		}

		if in.TenantID != nil {
			if err := checkTenantReference(tx, *in.TenantID); err != nil {
				return err
			}
		}

		properties, err := models.MarshalMap(candidate)
		if err != nil {
			return err
		}

		row := models.Entity{
			ID:          uuid.New().String(),
			EntityType:  in.EntityType,
			Name:        in.Name,
			Description: in.Description,
			Properties:  properties,
			Status:      models.StatusActive,
			TenantID:    in.TenantID,
			IsActive:    true,
			Version:     1,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		metadata := map[string]interface{}{"name": in.Name}
		if in.TenantID != nil {
			metadata["tenant_id"] = *in.TenantID
		}
		if _, err := AppendEvent(tx, EventDraft{
			EventType:  models.EventEntityCreated,
			EntityID:   row.ID,
			EntityType: row.EntityType,
			Data:       candidate,
			Metadata:   metadata,
			Source:     in.Source,
		}); err != nil {
			return err
		}

		entity = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateEntity merges a top-level property patch into the stored bag,
// re-validates the merged result against the active schema, and commits the
// row update plus its entity.updated event atomically. An explicit JSON null
// in the patch removes the property.
//
// Concurrency follows the optimistic discipline: the row update is
// conditional on the version read, and a lost race re-reads and retries up to
// UpdateRetries times. If expectedVersion is nonzero the caller pinned the
// version it read and a mismatch fails immediately instead of retrying.
func UpdateEntity(db *gorm.DB, id string, patch map[string]interface{}, expectedVersion uint64) (*models.Entity, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: properties patch is empty", types.ErrInvalidInput)
	}

	for attempt := 0; attempt < UpdateRetries; attempt++ {
		entity, err := GetEntity(db, id)
		if err != nil {
			return nil, err
		}
		if entity.Status == models.StatusDeleted {
			return nil, fmt.Errorf("%w: entity %s is deleted", types.ErrNotFound, id)
		}
		if expectedVersion != 0 && entity.Version != expectedVersion {
			return nil, types.ErrConcurrentModification
		}

		stored, err := entity.Properties.Map()
		if err != nil {
			return nil, err
		}
		merged := mergePatch(stored, patch)

		updated, conflicted, err := commitUpdate(db, entity, merged, patch)
		if err != nil {
			return nil, err
		}
		if !conflicted {
			return updated, nil
		}
		if expectedVersion != 0 {
			return nil, types.ErrConcurrentModification
		}
	}
	return nil, types.ErrConcurrentModification
}

// commitUpdate performs one validate-and-write attempt. conflicted reports a
// lost version race, which the caller may retry.
func commitUpdate(db *gorm.DB, entity *models.Entity, merged, patch map[string]interface{}) (*models.Entity, bool, error) {
	var updated *models.Entity
	conflicted := false

	err := db.Transaction(func(tx *gorm.DB) error {
		def, _, err := activeDefinition(tx, entity.EntityType)
		if err != nil {
			return err
		}
		if violations := validation.Validate(merged, def); len(violations) > 0 {
			return &types.ValidationError{Violations: violations}
		}

		properties, err := models.MarshalMap(merged)
		if err != nil {
			return err
		}

		newVersion := entity.Version + 1
		result := tx.Model(&models.Entity{}).
			Where("id = ? AND version = ?", entity.ID, entity.Version).
			Updates(map[string]interface{}{
				"properties": properties,
				"version":    newVersion,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			conflicted = true
			return nil
		}

		if _, err := AppendEvent(tx, EventDraft{
			EventType:  models.EventEntityUpdated,
			EntityID:   entity.ID,
			EntityType: entity.EntityType,
			Data:       patch,
			Metadata:   map[string]interface{}{"entity_version": newVersion},
		}); err != nil {
			return err
		}

		row := *entity
		row.Properties = properties
		row.Version = newVersion
		updated = &row
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if conflicted {
		return nil, true, nil
	}
	// Re-read so UpdatedAt reflects what the substrate committed.
	fresh, err := GetEntity(db, entity.ID)
	if err != nil {
		return updated, false, nil
	}
	return fresh, false, nil
}

// SetEntityStatus transitions an entity's lifecycle status with the same
// validate-then-commit-with-event discipline as property writes, even though
// the property bag is untouched. A transition to deleted emits entity.deleted;
// anything else emits entity.status_changed. Rows are never removed.
func SetEntityStatus(db *gorm.DB, id, status string) (*models.Entity, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrInvalidInput, status)
	}

	for attempt := 0; attempt < UpdateRetries; attempt++ {
		entity, err := GetEntity(db, id)
		if err != nil {
			return nil, err
		}
		if entity.Status == status {
			return entity, nil
		}

		conflicted := false
		err = db.Transaction(func(tx *gorm.DB) error {
			def, _, err := activeDefinition(tx, entity.EntityType)
			if err != nil {
				return err
			}
			stored, err := entity.Properties.Map()
			if err != nil {
				return err
			}
			if violations := validation.Validate(stored, def); len(violations) > 0 {
				return &types.ValidationError{Violations: violations}
			}

			newVersion := entity.Version + 1
			result := tx.Model(&models.Entity{}).
				Where("id = ? AND version = ?", entity.ID, entity.Version).
				Updates(map[string]interface{}{
					"status":    status,
					"is_active": status == models.StatusActive,
					"version":   newVersion,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				conflicted = true
				return nil
			}

			eventType := models.EventEntityStatusChanged
			if status == models.StatusDeleted {
				eventType = models.EventEntityDeleted
			}
			_, err = AppendEvent(tx, EventDraft{
				EventType:  eventType,
				EntityID:   entity.ID,
				EntityType: entity.EntityType,
				Data:       map[string]interface{}{"from": entity.Status, "to": status},
				Metadata:   map[string]interface{}{"entity_version": newVersion},
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		if !conflicted {
			return GetEntity(db, id)
		}
	}
	return nil, types.ErrConcurrentModification
}

// GetEntity returns one entity by id, including soft-deleted ones: reads of
// stored data stay possible whatever the lifecycle status.
func GetEntity(db *gorm.DB, id string) (*models.Entity, error) {
	var entity models.Entity
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: entity %s", types.ErrNotFound, id)
		}
		return nil, err
	}
	return &entity, nil
}

// ListEntities returns one page of a filtered entity scan plus the cursor to
// restart it.
func ListEntities(db *gorm.DB, f EntityFilter) ([]models.Entity, string, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Model(&models.Entity{})
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.TenantID != "" {
		query = query.Where("tenant_id = ?", f.TenantID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.AfterID != "" {
		query = query.Where("id > ?", f.AfterID)
	}

	var entities []models.Entity
	if err := query.Order("id ASC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(entities) == limit {
		next = entities[len(entities)-1].ID
	}
	return entities, next, nil
}

// checkTenantReference enforces the self-referential tenant hierarchy: a
// tenant_id must point at an existing entity of a tenant-denoting type.
func checkTenantReference(tx *gorm.DB, tenantID string) error {
	var tenant models.Entity
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("id = ?", tenantID).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: tenant %s", types.ErrDanglingReference, tenantID)
		}
		return err
	}
	for _, t := range TenantEntityTypes {
		if tenant.EntityType == t {
			return nil
		}
	}
	return fmt.Errorf("%w: entity %s is a %q, not a tenant type", types.ErrDanglingReference, tenantID, tenant.EntityType)
}

// mergePatch applies a top-level patch to a stored property bag. Explicit
// nulls remove keys; everything else assigns verbatim. Inputs are not
// mutated.
func mergePatch(stored, patch map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(stored)+len(patch))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}
