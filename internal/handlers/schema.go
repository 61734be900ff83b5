// schema.go
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
	"github.com/localforge/entitydb/internal/utils"
	"gorm.io/gorm"
)

// SchemaHandler handles schema registry routes
type SchemaHandler struct {
	DB *gorm.DB
}

// RegisterSchema handles POST /api/schemas
// @Summary Register a schema document
// @Description Publish a new schema version for an entity type, retiring the previous active version atomically. Re-registering an identical document is a no-op.
// @Tags Schemas
// @Accept json
// @Produce json
// @Param body body services.RegisterSchemaInput true "Schema document"
// @Success 201 {object} map[string]interface{}
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /schemas [post]
func (h *SchemaHandler) RegisterSchema(c *fiber.Ctx) error {
	var in services.RegisterSchemaInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "schema.input")
	}

	doc, err := services.RegisterSchema(h.DB, in)
	if err != nil {
		return respondError(c, err, "registerSchema")
	}
	if doc == nil {
		// Idempotent re-registration.
		return utils.SuccessResponse(c, fiber.Map{"ok": true, "message": "already registered"}, fiber.StatusOK)
	}

	return utils.SuccessResponse(c, doc, fiber.StatusCreated)
}

// GetActiveSchema handles GET /api/schemas/:entityType/active
// @Summary Get the active schema for an entity type
// @Tags Schemas
// @Produce json
// @Param entityType path string true "Entity type"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /schemas/{entityType}/active [get]
func (h *SchemaHandler) GetActiveSchema(c *fiber.Ctx) error {
	doc, err := services.GetActiveSchema(h.DB, c.Params("entityType"))
	if err != nil {
		return respondError(c, err, "getActiveSchema")
	}
	return utils.SuccessResponse(c, doc, fiber.StatusOK)
}

// GetSchemaVersion handles GET /api/schemas/:entityType/versions/:version
// @Summary Get one historical schema version
// @Tags Schemas
// @Produce json
// @Param entityType path string true "Entity type"
// @Param version path int true "Schema version"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /schemas/{entityType}/versions/{version} [get]
func (h *SchemaHandler) GetSchemaVersion(c *fiber.Ctx) error {
	version, err := c.ParamsInt("version")
	if err != nil || version < 1 {
		return utils.ErrorResponse(c, "Invalid version", fiber.StatusBadRequest, "schema.input")
	}

	doc, err := services.GetSchemaVersion(h.DB, c.Params("entityType"), uint64(version))
	if err != nil {
		return respondError(c, err, "getSchemaVersion")
	}
	return utils.SuccessResponse(c, doc, fiber.StatusOK)
}

// ListSchemaHistory handles GET /api/schemas/:entityType
// @Summary List every schema version for an entity type
// @Tags Schemas
// @Produce json
// @Param entityType path string true "Entity type"
// @Success 200 {object} map[string]interface{}
// @Router /schemas/{entityType} [get]
func (h *SchemaHandler) ListSchemaHistory(c *fiber.Ctx) error {
	docs, err := services.ListSchemaHistory(h.DB, c.Params("entityType"))
	if err != nil {
		return respondError(c, err, "listSchemaHistory")
	}
	if len(docs) == 0 {
		return utils.NotFoundResponse(c, "No schema documents for entity type '"+c.Params("entityType")+"'")
	}
	return utils.SuccessResponse(c, docs, fiber.StatusOK)
}
