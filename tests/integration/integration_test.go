// integration_test.go
//
// Full-stack test against a real MariaDB started via testcontainers. The
// embedded initdb DDL creates the tables, so this also exercises the
// generated-column guard that keeps one active schema per entity type.
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

package integration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localforge/entitydb/internal/models"
	"github.com/localforge/entitydb/internal/services"
	"github.com/localforge/entitydb/internal/types"
	"github.com/localforge/entitydb/tests/helpers"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestEntityStoreOnMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if err := helpers.EnsureDockerAvailable(context.Background()); err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	tc, err := helpers.CreateAllTestContainers(t)
	defer tc.Terminate(t)
	if err != nil {
		t.Fatalf("Failed to create test containers: %v", err)
	}

	db, err := gorm.Open(mysql.Open(tc.DSN), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to MariaDB: %v", err)
	}

	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())

	// Full entity lifecycle on the real substrate.
	id := helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())

	updated, err := services.UpdateEntity(db, id, map[string]interface{}{"reading": 33.0}, 1)
	if err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Expected version 2, got %d", updated.Version)
	}

	// A stale version pin is refused by the conditional update.
	if _, err := services.UpdateEntity(db, id, map[string]interface{}{"reading": 34.0}, 1); !errors.Is(err, types.ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}

	if _, err := services.SetEntityStatus(db, id, models.StatusDeleted); err != nil {
		t.Fatalf("Failed to delete entity: %v", err)
	}
	if _, err := services.GetEntity(db, id); err != nil {
		t.Errorf("Expected deleted entity to stay readable, got %v", err)
	}

	events, _, err := services.QueryEvents(db, services.EventQuery{EntityID: id})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 3 { // created, updated, deleted
		t.Errorf("Expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("Events out of order at %d", i)
		}
	}
}

func TestSingleActiveSchemaGuardOnMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if err := helpers.EnsureDockerAvailable(context.Background()); err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	tc, err := helpers.CreateAllTestContainers(t)
	defer tc.Terminate(t)
	if err != nil {
		t.Fatalf("Failed to create test containers: %v", err)
	}

	db, err := gorm.Open(mysql.Open(tc.DSN), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to MariaDB: %v", err)
	}

	helpers.RegisterTestSchema(t, db, "gateway-v1", "gateway", helpers.SensorDefinition())

	// The generated-column unique key rejects a second open validity window
	// even when inserted behind the registry's back.
	definition, err := models.MarshalMap(map[string]interface{}{
		"serial": map[string]interface{}{"type": "string"},
	})
	if err != nil {
		t.Fatalf("Failed to marshal definition: %v", err)
	}
	rogue := models.SchemaDocument{
		ID:         "gateway-rogue",
		EntityType: "gateway",
		Version:    99,
		Definition: definition,
		ValidFrom:  time.Now().UTC(),
	}
	if err := db.Create(&rogue).Error; err == nil {
		t.Error("Expected the database to reject a second active schema document")
	}

	// A normal publish still works: retire then insert stays within the key.
	def := helpers.SensorDefinition()
	if _, err := services.RegisterSchema(db, services.RegisterSchemaInput{
		ID: "gateway-v2", EntityType: "gateway", Definition: def,
	}); err != nil {
		t.Fatalf("Failed to publish second version: %v", err)
	}
	active, err := services.GetActiveSchema(db, "gateway")
	if err != nil {
		t.Fatalf("Failed to get active schema: %v", err)
	}
	if active.ID != "gateway-v2" {
		t.Errorf("Expected gateway-v2 active, got %s", active.ID)
	}
}
