// common.go
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
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localforge/entitydb/internal/types"
	"github.com/localforge/entitydb/internal/utils"
)

// respondError maps the store's error taxonomy to HTTP responses. Validation
// failures carry the full violation list; version conflicts reuse the
// E_VERSION envelope.
func respondError(c *fiber.Ctx, err error, errorType string) error {
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		return utils.ValidationErrorResponse(c, validationErr.Violations)
	}

	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "input")
	case errors.Is(err, types.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, types.ErrConcurrentModification):
		return utils.VersionErrorResponse(c)
	case errors.Is(err, types.ErrSchemaNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, types.ErrSchemaConflict):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "schema")
	case errors.Is(err, types.ErrDanglingReference):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "reference")
	case errors.Is(err, types.ErrDuplicateRelationship):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "duplicate")
	case errors.Is(err, types.ErrIntegrity):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "integrity")
	}

	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
}

// parseLimit reads the limit query parameter, 0 means service default.
func parseLimit(c *fiber.Ctx) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// parseUint reads an unsigned integer query parameter, 0 when absent or bad.
func parseUint(c *fiber.Ctx, key string) uint64 {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseTime reads an RFC 3339 query parameter, nil when absent.
func parseTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
