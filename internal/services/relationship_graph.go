// relationship_graph.go
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
	"time"

	"github.com/localforge/entitydb/internal/models"
	"github.com/localforge/entitydb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Conflict policies for Connect when an identical currently-valid edge
// already exists. The decision lives in the store, inside the same
// transaction that would insert, so concurrent callers cannot each pass a
// check-then-insert race.
const (
	ConflictCreateDuplicate = "create_duplicate"
	ConflictReuseExisting   = "reuse_existing"
	ConflictError           = "error"
)

// Edge directions for Neighbors.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
	DirectionBoth     = "both"
)

// ConnectInput describes a new edge. Strength defaults to 1.0 and OnConflict
// to create_duplicate when left empty.
type ConnectInput struct {
	FromEntityID     string                 `json:"from_entity"`
	ToEntityID       string                 `json:"to_entity"`
	RelationshipType string                 `json:"relationship_type"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
	Strength         *float64               `json:"strength,omitempty"`
	CreatedBy        string                 `json:"created_by,omitempty"`
	OnConflict       string                 `json:"on_conflict,omitempty"`
}

// NeighborFilter selects and paginates the edges touching one entity. Only
// currently-valid edges are returned.
type NeighborFilter struct {
	RelationshipType string
	Direction        string
	AfterID          uint64
	Limit            int
}

// Connect inserts a directed edge after verifying both endpoints exist, all
// inside one transaction. With reuse_existing or error, matching open edges
// are locked first so concurrent identical connects serialize on the tuple.
func Connect(db *gorm.DB, in ConnectInput) (*models.Relationship, error) {
	if in.FromEntityID == "" || in.ToEntityID == "" || in.RelationshipType == "" {
		return nil, fmt.Errorf("%w: from_entity, to_entity, and relationship_type are required", types.ErrInvalidInput)
	}

	strength := 1.0
	if in.Strength != nil {
		strength = *in.Strength
	}
	// Written so NaN fails the check too.
	if !(strength >= 0.0 && strength <= 1.0) {
		return nil, fmt.Errorf("%w: strength %v is outside [0.0, 1.0]", types.ErrInvalidInput, strength)
	}

	policy := in.OnConflict
	if policy == "" {
		policy = ConflictCreateDuplicate
	}
	switch policy {
	case ConflictCreateDuplicate, ConflictReuseExisting, ConflictError:
	default:
		return nil, fmt.Errorf("%w: unknown on_conflict policy %q", types.ErrInvalidInput, policy)
	}

	var edge *models.Relationship
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := checkEndpoint(tx, in.FromEntityID); err != nil {
			return err
		}
		if err := checkEndpoint(tx, in.ToEntityID); err != nil {
			return err
		}

		if policy != ConflictCreateDuplicate {
			var existing []models.Relationship
			err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("from_entity_id = ? AND to_entity_id = ? AND relationship_type = ? AND valid_to IS NULL",
					in.FromEntityID, in.ToEntityID, in.RelationshipType).
				Order("id ASC").
				Find(&existing).Error
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				if policy == ConflictError {
					return fmt.Errorf("%w: %s -[%s]-> %s", types.ErrDuplicateRelationship,
						in.FromEntityID, in.RelationshipType, in.ToEntityID)
				}
				edge = &existing[0]
				return nil
			}
		}

		properties, err := models.MarshalMap(in.Properties)
		if err != nil {
			return err
		}

		row := models.Relationship{
			FromEntityID:     in.FromEntityID,
			ToEntityID:       in.ToEntityID,
			RelationshipType: in.RelationshipType,
			Properties:       properties,
			Strength:         strength,
			ValidFrom:        time.Now().UTC(),
			CreatedBy:        in.CreatedBy,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		edge = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// Disconnect closes an edge's validity window. The row stays; a second
// disconnect of an already-closed edge is a no-op.
func Disconnect(db *gorm.DB, id uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var rel models.Relationship
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("id = ?", id).
			First(&rel).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: relationship %d", types.ErrNotFound, id)
			}
			return err
		}
		if rel.ValidTo != nil {
			return nil
		}
		return tx.Model(&models.Relationship{}).
			Where("id = ? AND valid_to IS NULL", id).
			Update("valid_to", time.Now().UTC()).Error
	})
}

// GetRelationship returns one edge by id, open or closed.
func GetRelationship(db *gorm.DB, id uint64) (*models.Relationship, error) {
	var rel models.Relationship
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("id = ?", id).
		First(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: relationship %d", types.ErrNotFound, id)
		}
		return nil, err
	}
	return &rel, nil
}

// Neighbors returns one page of the currently-valid edges touching an entity,
// ascending by id, plus the cursor to restart the scan.
func Neighbors(db *gorm.DB, entityID string, f NeighborFilter) ([]models.Relationship, uint64, error) {
	direction := f.Direction
	if direction == "" {
		direction = DirectionBoth
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	now := time.Now().UTC()
	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Model(&models.Relationship{}).
		Where("valid_to IS NULL OR valid_to > ?", now)

	switch direction {
	case DirectionOutgoing:
		query = query.Where("from_entity_id = ?", entityID)
	case DirectionIncoming:
		query = query.Where("to_entity_id = ?", entityID)
	case DirectionBoth:
		query = query.Where("from_entity_id = ? OR to_entity_id = ?", entityID, entityID)
	default:
		return nil, 0, fmt.Errorf("%w: unknown direction %q", types.ErrInvalidInput, direction)
	}

	if f.RelationshipType != "" {
		query = query.Where("relationship_type = ?", f.RelationshipType)
	}
	if f.AfterID > 0 {
		query = query.Where("id > ?", f.AfterID)
	}

	var edges []models.Relationship
	if err := query.Order("id ASC").Limit(limit).Find(&edges).Error; err != nil {
		return nil, 0, err
	}

	var next uint64
	if len(edges) == limit {
		next = edges[len(edges)-1].ID
	}
	return edges, next, nil
}

// checkEndpoint verifies a relationship endpoint resolves to a stored entity.
func checkEndpoint(tx *gorm.DB, entityID string) error {
	var count int64
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Model(&models.Entity{}).
		Where("id = ?", entityID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: entity %s", types.ErrDanglingReference, entityID)
	}
	return nil
}
