// relationship.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localforge/entitydb/internal/services"
	"github.com/localforge/entitydb/internal/types"
	"github.com/localforge/entitydb/internal/utils"
	"gorm.io/gorm"
)

// RelationshipHandler handles relationship graph routes
type RelationshipHandler struct {
	DB *gorm.DB
}

// Connect handles POST /api/relationships
// @Summary Connect entities
// @Description Create one or more directed edges. Accepts a single edge object or an array. Both endpoints must exist; the on_conflict policy decides what an identical open edge means.
// @Tags Relationships
// @Accept json
// @Produce json
// @Param body body services.ConnectInput true "Edge(s) to create"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /relationships [post]
func (h *RelationshipHandler) Connect(c *fiber.Ctx) error {
	var body types.FlexList[services.ConnectInput]
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "relationship.input")
	}
	inputs := body.Slice()
	if len(inputs) == 0 {
		return utils.ErrorResponse(c, "No relationships supplied", fiber.StatusBadRequest, "relationship.input")
	}

	edges := make([]interface{}, 0, len(inputs))
	for _, in := range inputs {
		edge, err := services.Connect(h.DB, in)
		if err != nil {
			return respondError(c, err, "connect")
		}
		edges = append(edges, edge)
	}

	if len(edges) == 1 {
		return utils.SuccessResponse(c, edges[0], fiber.StatusCreated)
	}
	return utils.SuccessResponse(c, edges, fiber.StatusCreated)
}

// Disconnect handles DELETE /api/relationships/:id
// @Summary Disconnect a relationship
// @Description Close the edge's validity window. The row is kept; disconnecting twice is a no-op.
// @Tags Relationships
// @Produce json
// @Param id path int true "Relationship ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /relationships/{id} [delete]
func (h *RelationshipHandler) Disconnect(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return utils.ErrorResponse(c, "Invalid relationship id", fiber.StatusBadRequest, "relationship.input")
	}

	if err := services.Disconnect(h.DB, uint64(id)); err != nil {
		return respondError(c, err, "disconnect")
	}

	return utils.SuccessResponse(c, fiber.Map{"ok": true}, fiber.StatusOK)
}

// GetRelationship handles GET /api/relationships/:id
// @Summary Get a relationship
// @Description Fetch one edge by id, whether its validity window is open or closed
// @Tags Relationships
// @Produce json
// @Param id path int true "Relationship ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /relationships/{id} [get]
func (h *RelationshipHandler) GetRelationship(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return utils.ErrorResponse(c, "Invalid relationship id", fiber.StatusBadRequest, "relationship.input")
	}

	rel, err := services.GetRelationship(h.DB, uint64(id))
	if err != nil {
		return respondError(c, err, "getRelationship")
	}
	return utils.SuccessResponse(c, rel, fiber.StatusOK)
}

// Neighbors handles GET /api/entities/:id/relationships
// @Summary List an entity's currently-valid edges
// @Tags Relationships
// @Produce json
// @Param id path string true "Entity ID"
// @Param relationship_type query string false "Edge type filter"
// @Param direction query string false "outgoing, incoming, or both (default both)"
// @Param after query int false "Restart cursor (last edge id of previous page)"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /entities/{id}/relationships [get]
func (h *RelationshipHandler) Neighbors(c *fiber.Ctx) error {
	edges, next, err := services.Neighbors(h.DB, c.Params("id"), services.NeighborFilter{
		RelationshipType: c.Query("relationship_type"),
		Direction:        c.Query("direction"),
		AfterID:          parseUint(c, "after"),
		Limit:            parseLimit(c),
	})
	if err != nil {
		return respondError(c, err, "neighbors")
	}

	return utils.PageResponse(c, edges, next)
}
