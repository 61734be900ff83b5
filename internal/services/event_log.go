// event_log.go
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
	"time"

	"github.com/localforge/entitydb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// EventDraft is the caller-supplied part of an event; id, timestamp, and
// partition are assigned at append time.
type EventDraft struct {
	EventType  string                 `json:"event_type"`
	EntityID   string                 `json:"entity_id"`
	EntityType string                 `json:"entity_type"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Source     string                 `json:"source,omitempty"`
}

// EventQuery filters and paginates an event scan. Results are ascending by
// (timestamp, id); After restarts a scan exactly where the previous page
// ended. The partition column never appears here: bucketing is internal.
type EventQuery struct {
	EntityID  string
	EventType string
	From      *time.Time
	To        *time.Time
	After     *EventCursor
	Limit     int
}

// EventCursor is the keyset position of the last row of a page.
type EventCursor struct {
	Timestamp time.Time `json:"timestamp"`
	ID        uint64    `json:"id"`
}

// AppendEvent appends one event. Pass a transaction handle to make the append
// atomic with the mutation that caused it; the entity store does exactly
// that. There is no update or delete counterpart.
func AppendEvent(db *gorm.DB, draft EventDraft) (*models.Event, error) {
	data, err := models.MarshalMap(draft.Data)
	if err != nil {
		return nil, err
	}
	metadata, err := models.MarshalMap(draft.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event := models.Event{
		Timestamp:  now,
		EventType:  draft.EventType,
		EntityID:   draft.EntityID,
		EntityType: draft.EntityType,
		Data:       data,
		Metadata:   metadata,
		Source:     draft.Source,
		Partition:  models.PartitionKey(now),
	}

	if err := db.Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// QueryEvents returns one page of the time-ordered log. Identical results
// regardless of partition boundaries.
func QueryEvents(db *gorm.DB, q EventQuery) ([]models.Event, *EventCursor, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Model(&models.Event{})

	// The ordered scan is the hot path on MySQL; steer the optimizer to the
	// composite index.
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_events_time_id"))
	}

	if q.EntityID != "" {
		query = query.Where("entity_id = ?", q.EntityID)
	}
	if q.EventType != "" {
		query = query.Where("event_type = ?", q.EventType)
	}
	if q.From != nil {
		query = query.Where("timestamp >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("timestamp < ?", *q.To)
	}
	if q.After != nil {
		query = query.Where("timestamp > ? OR (timestamp = ? AND id > ?)",
			q.After.Timestamp, q.After.Timestamp, q.After.ID)
	}

	var events []models.Event
	if err := query.Order("timestamp ASC, id ASC").Limit(limit).Find(&events).Error; err != nil {
		return nil, nil, err
	}

	var next *EventCursor
	if len(events) == limit {
		last := events[len(events)-1]
		next = &EventCursor{Timestamp: last.Timestamp, ID: last.ID}
	}
	return events, next, nil
}

// PruneEventPartitions drops whole month buckets older than before. This is
// the out-of-band retention hook for administrative tooling; nothing in the
// service layer calls it.
func PruneEventPartitions(db *gorm.DB, before time.Time) (int64, error) {
	result := db.Where("partition < ?", models.PartitionKey(before)).
		Delete(&models.Event{})
	return result.RowsAffected, result.Error
}
