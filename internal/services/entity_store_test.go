package services_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/localforge/entitydb/internal/models"
	"github.com/localforge/entitydb/internal/services"
	"github.com/localforge/entitydb/internal/types"
	"github.com/localforge/entitydb/internal/validation"
	"github.com/localforge/entitydb/tests/helpers"
	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return count
}

func TestCreateEntityRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())

	props := helpers.SensorProperties()
	entity, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "lab sensor",
		Properties: props,
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	if entity.Version != 1 {
		t.Errorf("Expected version 1, got %d", entity.Version)
	}
	if entity.Status != models.StatusActive {
		t.Errorf("Expected active status, got %s", entity.Status)
	}

	// Idiomatic round trip: what was accepted is what is stored.
	fetched, err := services.GetEntity(db, entity.ID)
	if err != nil {
		t.Fatalf("Failed to fetch entity: %v", err)
	}
	stored, err := fetched.Properties.Map()
	if err != nil {
		t.Fatalf("Failed to decode stored properties: %v", err)
	}
	if !reflect.DeepEqual(stored, props) {
		t.Errorf("Stored properties differ.\n got: %v\nwant: %v", stored, props)
	}

	// The write produced exactly one entity.created event carrying the
	// accepted properties.
	events, _, err := services.QueryEvents(db, services.EventQuery{EntityID: entity.ID})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].EventType != models.EventEntityCreated {
		t.Errorf("Expected %s, got %s", models.EventEntityCreated, events[0].EventType)
	}
	data, err := events[0].Data.Map()
	if err != nil {
		t.Fatalf("Failed to decode event data: %v", err)
	}
	if !reflect.DeepEqual(data, props) {
		t.Errorf("Event data differs from accepted properties.\n got: %v\nwant: %v", data, props)
	}
}

func TestCreateEntityWithoutSchemaFails(t *testing.T) {
	db := setupTestDB(t)

	_, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "orphan",
		Properties: helpers.SensorProperties(),
	})
	if !errors.Is(err, types.ErrSchemaNotFound) {
		t.Errorf("Expected ErrSchemaNotFound, got %v", err)
	}
	if n := countRows(t, db, &models.Entity{}); n != 0 {
		t.Errorf("Expected no entity rows, got %d", n)
	}
}

func TestCreateEntityRejectionLeavesNothingBehind(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())

	// Three independent problems: enum miss, range miss, missing required.
	props := helpers.SensorProperties()
	props["kind"] = "voltage"
	props["reading"] = 250.0
	delete(props, "serial")

	_, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "bad sensor",
		Properties: props,
	})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(verr.Violations) != 3 {
		t.Errorf("Expected all 3 violations reported, got %d: %v", len(verr.Violations), verr.Violations)
	}

	// All or nothing: no row, no event.
	if n := countRows(t, db, &models.Entity{}); n != 0 {
		t.Errorf("Expected no entity rows, got %d", n)
	}
	if n := countRows(t, db, &models.Event{}); n != 0 {
		t.Errorf("Expected no events, got %d", n)
	}
}

func TestUpdateEntityMergesAndVersions(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())
	id := helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())

	updated, err := services.UpdateEntity(db, id, map[string]interface{}{
		"reading": 42.0,
		"label":   "recalibrated",
	}, 0)
	if err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Expected version 2, got %d", updated.Version)
	}

	stored, err := updated.Properties.Map()
	if err != nil {
		t.Fatalf("Failed to decode properties: %v", err)
	}
	if stored["reading"] != 42.0 {
		t.Errorf("Expected reading 42, got %v", stored["reading"])
	}
	if stored["label"] != "recalibrated" {
		t.Errorf("Expected new label, got %v", stored["label"])
	}
	// Untouched keys survive a merge.
	if stored["serial"] != "a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d" {
		t.Errorf("Expected serial preserved, got %v", stored["serial"])
	}

	// Explicit null removes a key.
	updated, err = services.UpdateEntity(db, id, map[string]interface{}{"label": nil}, 0)
	if err != nil {
		t.Fatalf("Failed to remove property: %v", err)
	}
	stored, _ = updated.Properties.Map()
	if _, present := stored["label"]; present {
		t.Error("Expected label removed by explicit null")
	}

	events, _, err := services.QueryEvents(db, services.EventQuery{
		EntityID:  id,
		EventType: models.EventEntityUpdated,
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 update events, got %d", len(events))
	}
}

func TestUpdateEntityStaleVersionConflicts(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())
	id := helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())

	if _, err := services.UpdateEntity(db, id, map[string]interface{}{"reading": 30.0}, 0); err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}

	// A caller still holding version 1 must not silently clobber version 2.
	_, err := services.UpdateEntity(db, id, map[string]interface{}{"reading": 31.0}, 1)
	if !errors.Is(err, types.ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}
}

func TestUpdateEntityInvalidPatchRejected(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())
	id := helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())

	// Removing a required key via null must fail validation of the merged bag.
	_, err := services.UpdateEntity(db, id, map[string]interface{}{"serial": nil}, 0)
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	entity, err := services.GetEntity(db, id)
	if err != nil {
		t.Fatalf("Failed to fetch entity: %v", err)
	}
	if entity.Version != 1 {
		t.Errorf("Expected version unchanged at 1, got %d", entity.Version)
	}
	events, _, _ := services.QueryEvents(db, services.EventQuery{
		EntityID:  id,
		EventType: models.EventEntityUpdated,
	})
	if len(events) != 0 {
		t.Errorf("Expected no update events after a rejected patch, got %d", len(events))
	}
}

func TestSetEntityStatusSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())
	id := helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())

	entity, err := services.SetEntityStatus(db, id, models.StatusDeleted)
	if err != nil {
		t.Fatalf("Failed to delete entity: %v", err)
	}
	if entity.Status != models.StatusDeleted {
		t.Errorf("Expected deleted status, got %s", entity.Status)
	}
	if entity.IsActive {
		t.Error("Expected is_active false after delete")
	}

	// The row is still there and still readable.
	if _, err := services.GetEntity(db, id); err != nil {
		t.Errorf("Expected deleted entity to stay readable, got %v", err)
	}

	// But it no longer accepts writes.
	_, err = services.UpdateEntity(db, id, map[string]interface{}{"reading": 1.0}, 0)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update of deleted entity, got %v", err)
	}

	events, _, err := services.QueryEvents(db, services.EventQuery{
		EntityID:  id,
		EventType: models.EventEntityDeleted,
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 delete event, got %d", len(events))
	}

	// Setting the same status again is a no-op and emits nothing.
	if _, err := services.SetEntityStatus(db, id, models.StatusDeleted); err != nil {
		t.Fatalf("Expected same-status transition to no-op, got %v", err)
	}
	events, _, _ = services.QueryEvents(db, services.EventQuery{EntityID: id})
	if len(events) != 2 { // created + deleted
		t.Errorf("Expected 2 events total, got %d", len(events))
	}
}

func TestSetEntityStatusChangeEvent(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())
	id := helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())

	if _, err := services.SetEntityStatus(db, id, models.StatusInactive); err != nil {
		t.Fatalf("Failed to deactivate entity: %v", err)
	}

	events, _, err := services.QueryEvents(db, services.EventQuery{
		EntityID:  id,
		EventType: models.EventEntityStatusChanged,
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 status_changed event, got %d", len(events))
	}
	data, _ := events[0].Data.Map()
	if data["from"] != models.StatusActive || data["to"] != models.StatusInactive {
		t.Errorf("Expected from/to transition in event data, got %v", data)
	}
}

func TestListEntitiesKeysetPagination(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())

	for i := 0; i < 5; i++ {
		helpers.CreateTestEntity(t, db, "device", helpers.SensorProperties())
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, next, err := services.ListEntities(db, services.EntityFilter{
			EntityType: "device",
			AfterID:    cursor,
			Limit:      2,
		})
		if err != nil {
			t.Fatalf("Failed to list entities: %v", err)
		}
		for _, e := range page {
			if seen[e.ID] {
				t.Errorf("Entity %s returned twice across pages", e.ID)
			}
			seen[e.ID] = true
		}
		pages++
		if next == "" || len(page) == 0 {
			break
		}
		cursor = next
	}

	if len(seen) != 5 {
		t.Errorf("Expected 5 entities across pages, got %d", len(seen))
	}
	if pages < 3 {
		t.Errorf("Expected at least 3 pages at limit 2, got %d", pages)
	}
}

func TestCreateEntityTenantReference(t *testing.T) {
	db := setupTestDB(t)
	helpers.RegisterTestSchema(t, db, "org-v1", "organization", validation.Definition{
		"domain": {Type: validation.TypeString},
	})
	helpers.RegisterTestSchema(t, db, "device-v1", "device", helpers.SensorDefinition())

	org, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "organization",
		Name:       "acme",
		Properties: map[string]interface{}{"domain": "acme.example"},
	})
	if err != nil {
		t.Fatalf("Failed to create organization: %v", err)
	}

	// Valid reference to a tenant-denoting entity.
	entity, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "tenant sensor",
		Properties: helpers.SensorProperties(),
		TenantID:   &org.ID,
	})
	if err != nil {
		t.Fatalf("Failed to create tenant-scoped entity: %v", err)
	}

	// Dangling reference.
	missing := "00000000-0000-0000-0000-000000000000"
	_, err = services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "orphan sensor",
		Properties: helpers.SensorProperties(),
		TenantID:   &missing,
	})
	if !errors.Is(err, types.ErrDanglingReference) {
		t.Errorf("Expected ErrDanglingReference for missing tenant, got %v", err)
	}

	// Reference to a non-tenant entity type.
	_, err = services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "confused sensor",
		Properties: helpers.SensorProperties(),
		TenantID:   &entity.ID,
	})
	if !errors.Is(err, types.ErrDanglingReference) {
		t.Errorf("Expected ErrDanglingReference for non-tenant type, got %v", err)
	}

	// Tenant filter on the scan.
	scoped, _, err := services.ListEntities(db, services.EntityFilter{TenantID: org.ID})
	if err != nil {
		t.Fatalf("Failed to list tenant entities: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != entity.ID {
		t.Errorf("Expected exactly the tenant-scoped entity, got %d rows", len(scoped))
	}
}

func TestCreateEntityAppliesDeclaredDefaults(t *testing.T) {
	db := setupTestDB(t)
	def := validation.Definition{
		"serial": {Type: validation.TypeString, Required: true, Format: validation.FormatIdentifier},
		"kind":   {Type: validation.TypeString, Default: "temperature"},
	}
	helpers.RegisterTestSchema(t, db, "device-v1", "device", def)

	entity, err := services.CreateEntity(db, services.CreateEntityInput{
		EntityType: "device",
		Name:       "defaulted sensor",
		Properties: map[string]interface{}{"serial": "0f8fad5b-d9cb-469f-a165-70867728950e"},
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}

	stored, err := entity.Properties.Map()
	if err != nil {
		t.Fatalf("Failed to decode stored properties: %v", err)
	}
	if stored["kind"] != "temperature" {
		t.Errorf("Expected default kind to be stored, got %v", stored["kind"])
	}

	events, _, err := services.QueryEvents(db, services.EventQuery{EntityID: entity.ID})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	data, err := events[0].Data.Map()
	if err != nil {
		t.Fatalf("Failed to decode event data: %v", err)
	}
	if data["kind"] != "temperature" {
		t.Errorf("Expected event data to carry the defaulted field, got %v", data["kind"])
	}

	// Defaults never reappear on update: removing the field leaves it gone.
	updated, err := services.UpdateEntity(db, entity.ID, map[string]interface{}{"kind": nil}, 0)
	if err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}
	merged, err := updated.Properties.Map()
	if err != nil {
		t.Fatalf("Failed to decode updated properties: %v", err)
	}
	if _, present := merged["kind"]; present {
		t.Errorf("Expected kind to stay removed after update, got %v", merged["kind"])
	}
}
