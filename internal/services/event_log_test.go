package services_test

import (
	"testing"
	"time"

	"github.com/localforge/entitydb/internal/models"
	"github.com/localforge/entitydb/internal/services"
	"gorm.io/gorm"
)

// seedEvent inserts an event row directly so tests control the timestamp.
func seedEvent(t *testing.T, db *gorm.DB, ts time.Time, eventType, entityID string) uint64 {
	t.Helper()
	event := models.Event{
		Timestamp:  ts,
		EventType:  eventType,
		EntityID:   entityID,
		EntityType: "device",
		Partition:  models.PartitionKey(ts),
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}
	return event.ID
}

func TestAppendEventAssignsTimestampAndPartition(t *testing.T) {
	db := setupTestDB(t)

	before := time.Now().UTC()
	event, err := services.AppendEvent(db, services.EventDraft{
		EventType:  models.EventEntityCreated,
		EntityID:   "e-1",
		EntityType: "device",
		Data:       map[string]interface{}{"reading": 20.0},
	})
	if err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	if event.ID == 0 {
		t.Error("Expected an assigned id")
	}
	if event.Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("Expected a current timestamp, got %v", event.Timestamp)
	}
	if event.Partition != models.PartitionKey(event.Timestamp) {
		t.Errorf("Expected partition %s, got %s", models.PartitionKey(event.Timestamp), event.Partition)
	}
}

func TestQueryEventsOrderedByTimestampThenID(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// Insert out of time order, with a timestamp tie in the middle.
	seedEvent(t, db, base.Add(2*time.Hour), models.EventEntityUpdated, "e-1")
	tieFirst := seedEvent(t, db, base, models.EventEntityCreated, "e-1")
	tieSecond := seedEvent(t, db, base, models.EventEntityUpdated, "e-1")
	seedEvent(t, db, base.Add(time.Hour), models.EventEntityUpdated, "e-1")

	events, _, err := services.QueryEvents(db, services.EventQuery{EntityID: "e-1"})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if cur.Timestamp.Before(prev.Timestamp) {
			t.Errorf("Events out of timestamp order at %d", i)
		}
		if cur.Timestamp.Equal(prev.Timestamp) && cur.ID < prev.ID {
			t.Errorf("Timestamp tie not broken by id at %d", i)
		}
	}
	if events[0].ID != tieFirst || events[1].ID != tieSecond {
		t.Errorf("Expected tie resolved by insertion id, got %d then %d", events[0].ID, events[1].ID)
	}
}

func TestQueryEventsFilters(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedEvent(t, db, base, models.EventEntityCreated, "e-1")
	seedEvent(t, db, base.Add(time.Hour), models.EventEntityUpdated, "e-1")
	seedEvent(t, db, base.Add(2*time.Hour), models.EventEntityCreated, "e-2")

	byEntity, _, err := services.QueryEvents(db, services.EventQuery{EntityID: "e-2"})
	if err != nil {
		t.Fatalf("Failed to query by entity: %v", err)
	}
	if len(byEntity) != 1 {
		t.Errorf("Expected 1 event for e-2, got %d", len(byEntity))
	}

	byType, _, err := services.QueryEvents(db, services.EventQuery{EventType: models.EventEntityCreated})
	if err != nil {
		t.Fatalf("Failed to query by type: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("Expected 2 created events, got %d", len(byType))
	}

	// Half-open window [from, to).
	from := base.Add(30 * time.Minute)
	to := base.Add(2 * time.Hour)
	windowed, _, err := services.QueryEvents(db, services.EventQuery{From: &from, To: &to})
	if err != nil {
		t.Fatalf("Failed to query window: %v", err)
	}
	if len(windowed) != 1 {
		t.Errorf("Expected 1 event in window, got %d", len(windowed))
	}
}

func TestQueryEventsCursorRestartsExactly(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// Several rows share a timestamp so the cursor must carry the id too.
	var ids []uint64
	for i := 0; i < 7; i++ {
		ts := base.Add(time.Duration(i/2) * time.Minute)
		ids = append(ids, seedEvent(t, db, ts, models.EventEntityUpdated, "e-1"))
	}

	var collected []uint64
	var cursor *services.EventCursor
	for {
		page, next, err := services.QueryEvents(db, services.EventQuery{
			After: cursor,
			Limit: 3,
		})
		if err != nil {
			t.Fatalf("Failed to query page: %v", err)
		}
		for _, e := range page {
			collected = append(collected, e.ID)
		}
		if next == nil || len(page) == 0 {
			break
		}
		cursor = next
	}

	if len(collected) != len(ids) {
		t.Fatalf("Expected %d events across pages, got %d", len(ids), len(collected))
	}
	for i, id := range ids {
		if collected[i] != id {
			t.Errorf("Page walk diverged at %d: expected id %d, got %d", i, id, collected[i])
		}
	}
}

func TestQueryEventsSpanPartitionsTransparently(t *testing.T) {
	db := setupTestDB(t)

	// Rows land in three different month buckets.
	times := []time.Time{
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		seedEvent(t, db, ts, models.EventEntityUpdated, "e-1")
	}

	events, _, err := services.QueryEvents(db, services.EventQuery{EntityID: "e-1"})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events across buckets, got %d", len(events))
	}
	for i, e := range events {
		if !e.Timestamp.Equal(times[i]) {
			t.Errorf("Expected %v at position %d, got %v", times[i], i, e.Timestamp)
		}
	}
}

func TestPruneEventPartitions(t *testing.T) {
	db := setupTestDB(t)

	seedEvent(t, db, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), models.EventEntityCreated, "old")
	seedEvent(t, db, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), models.EventEntityCreated, "old")
	seedEvent(t, db, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), models.EventEntityCreated, "recent")

	pruned, err := services.PruneEventPartitions(db, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Failed to prune partitions: %v", err)
	}
	if pruned != 2 {
		t.Errorf("Expected 2 rows pruned, got %d", pruned)
	}

	remaining, _, err := services.QueryEvents(db, services.EventQuery{})
	if err != nil {
		t.Fatalf("Failed to query remaining events: %v", err)
	}
	if len(remaining) != 1 || remaining[0].EntityID != "recent" {
		t.Errorf("Expected only the recent event to survive, got %d rows", len(remaining))
	}
}
