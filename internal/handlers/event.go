// event.go
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

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localforge/entitydb/internal/services"
	"github.com/localforge/entitydb/internal/utils"
	"gorm.io/gorm"
)

// EventHandler handles event log routes. Events are read-only audit data;
// there is no mutation route.
type EventHandler struct {
	DB *gorm.DB
}

// QueryEvents handles GET /api/events
// @Summary Query the event log
// @Description Cursor-paginated scan of the append-only log, ascending by (timestamp, id)
// @Tags Events
// @Produce json
// @Param entity_id query string false "Entity filter"
// @Param event_type query string false "Event type filter"
// @Param from query string false "Inclusive lower time bound (RFC 3339)"
// @Param to query string false "Exclusive upper time bound (RFC 3339)"
// @Param after_ts query string false "Restart cursor timestamp (RFC 3339)"
// @Param after_id query int false "Restart cursor id"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /events [get]
func (h *EventHandler) QueryEvents(c *fiber.Ctx) error {
	from, err := parseTime(c, "from")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid 'from' timestamp", fiber.StatusBadRequest, "event.input")
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid 'to' timestamp", fiber.StatusBadRequest, "event.input")
	}

	var after *services.EventCursor
	if raw := c.Query("after_ts"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return utils.ErrorResponse(c, "Invalid 'after_ts' timestamp", fiber.StatusBadRequest, "event.input")
		}
		after = &services.EventCursor{Timestamp: ts, ID: parseUint(c, "after_id")}
	}

	events, next, err := services.QueryEvents(h.DB, services.EventQuery{
		EntityID:  c.Query("entity_id"),
		EventType: c.Query("event_type"),
		From:      from,
		To:        to,
		After:     after,
		Limit:     parseLimit(c),
	})
	if err != nil {
		return respondError(c, err, "queryEvents")
	}

	return utils.PageResponse(c, events, next)
}
