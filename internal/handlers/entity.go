// entity.go
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

// EntityHandler handles entity store routes
type EntityHandler struct {
	DB *gorm.DB
}

// CreateEntity handles POST /api/entities
// @Summary Create an entity
// @Description Validate properties against the active schema for the entity type and create the entity with its audit event
// @Tags Entities
// @Accept json
// @Produce json
// @Param body body services.CreateEntityInput true "Entity to create"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ViolationResponseStruct
// @Router /entities [post]
func (h *EntityHandler) CreateEntity(c *fiber.Ctx) error {
	var in services.CreateEntityInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "entity.input")
	}

	entity, err := services.CreateEntity(h.DB, in)
	if err != nil {
		return respondError(c, err, "createEntity")
	}

	return utils.SuccessResponse(c, entity, fiber.StatusCreated)
}

// GetEntity handles GET /api/entities/:id
// @Summary Get an entity
// @Tags Entities
// @Produce json
// @Param id path string true "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /entities/{id} [get]
func (h *EntityHandler) GetEntity(c *fiber.Ctx) error {
	entity, err := services.GetEntity(h.DB, c.Params("id"))
	if err != nil {
		return respondError(c, err, "getEntity")
	}
	return utils.SuccessResponse(c, entity, fiber.StatusOK)
}

// UpdateEntity handles PATCH /api/entities/:id
// @Summary Update entity properties
// @Description Merge a property patch, re-validate against the active schema, and commit with an audit event. Optional version pins the optimistic check.
// @Tags Entities
// @Accept json
// @Produce json
// @Param id path string true "Entity ID"
// @Param body body object true "Patch with optional version"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ViolationResponseStruct
// @Router /entities/{id} [patch]
func (h *EntityHandler) UpdateEntity(c *fiber.Ctx) error {
	var body struct {
		Version    types.FlexUint64       `json:"version"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "entity.input")
	}

	entity, err := services.UpdateEntity(h.DB, c.Params("id"), body.Properties, body.Version.Uint64())
	if err != nil {
		return respondError(c, err, "updateEntity")
	}

	return utils.SuccessResponse(c, entity, fiber.StatusOK)
}

// SetEntityStatus handles PUT /api/entities/:id/status
// @Summary Transition entity lifecycle status
// @Description Transition status (active, inactive, deleted) with an audit event. Deletion is a status transition, never a row removal.
// @Tags Entities
// @Accept json
// @Produce json
// @Param id path string true "Entity ID"
// @Param body body object true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /entities/{id}/status [put]
func (h *EntityHandler) SetEntityStatus(c *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "entity.input")
	}

	entity, err := services.SetEntityStatus(h.DB, c.Params("id"), body.Status)
	if err != nil {
		return respondError(c, err, "setEntityStatus")
	}

	return utils.SuccessResponse(c, entity, fiber.StatusOK)
}

// ListEntities handles GET /api/entities
// @Summary List entities
// @Description Cursor-paginated scan filtered by entity_type, tenant_id, and status
// @Tags Entities
// @Produce json
// @Param entity_type query string false "Entity type filter"
// @Param tenant_id query string false "Tenant filter"
// @Param status query string false "Status filter"
// @Param after query string false "Restart cursor (last id of previous page)"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /entities [get]
func (h *EntityHandler) ListEntities(c *fiber.Ctx) error {
	entities, next, err := services.ListEntities(h.DB, services.EntityFilter{
		EntityType: c.Query("entity_type"),
		TenantID:   c.Query("tenant_id"),
		Status:     c.Query("status"),
		AfterID:    c.Query("after"),
		Limit:      parseLimit(c),
	})
	if err != nil {
		return respondError(c, err, "listEntities")
	}

	return utils.PageResponse(c, entities, next)
}
