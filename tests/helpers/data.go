// data.go
//
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

package helpers

import (
	"testing"

	"github.com/localforge/entitydb/internal/services"
	"github.com/localforge/entitydb/internal/validation"
	"gorm.io/gorm"
)

// SensorDefinition is the field ruleset used by most tests. A device
// document with a required identifier, an enum, a bounded number and an
// optional nested metadata object.
func SensorDefinition() validation.Definition {
	min := 0.0
	max := 100.0
	maxLen := 64
	return validation.Definition{
		"serial": {
			Type:     validation.TypeString,
			Required: true,
			Format:   validation.FormatIdentifier,
		},
		"kind": {
			Type:     validation.TypeString,
			Required: true,
			Enum:     []interface{}{"temperature", "humidity", "pressure"},
		},
		"reading": {
			Type: validation.TypeNumber,
			Min:  &min,
			Max:  &max,
		},
		"label": {
			Type:      validation.TypeString,
			MaxLength: &maxLen,
		},
		"metadata": {
			Type: validation.TypeObject,
			Fields: map[string]validation.FieldRule{
				"firmware": {Type: validation.TypeString},
				"channel":  {Type: validation.TypeInteger},
			},
		},
	}
}

// RegisterTestSchema registers a schema document and fails the test on error.
func RegisterTestSchema(t *testing.T, db *gorm.DB, id, entityType string, def validation.Definition) {
	t.Helper()
	_, err := services.RegisterSchema(db, services.RegisterSchemaInput{
		ID:         id,
		EntityType: entityType,
		Definition: def,
		CreatedBy:  "test",
	})
	if err != nil {
		t.Fatalf("Failed to register schema %s: %v", id, err)
	}
}

// SensorProperties returns a valid property document for SensorDefinition.
func SensorProperties() map[string]interface{} {
	return map[string]interface{}{
		"serial":  "a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d",
		"kind":    "temperature",
		"reading": 21.5,
	}
}

// CreateTestEntity creates an entity against an already-registered schema
// and fails the test on error.
func CreateTestEntity(t *testing.T, db *gorm.DB, entityType string, props map[string]interface{}) string {
	t.Helper()
	entity, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: entityType,
		Name:       "test entity",
		Properties: props,
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	return entity.ID
}
