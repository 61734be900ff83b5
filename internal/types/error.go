// error.go
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

package types

import (
	"errors"
	"fmt"

	"github.com/localforge/entitydb/internal/validation"
)

// Error taxonomy of the store. Callers branch with errors.Is; the HTTP layer
// maps each sentinel to a status code.
var (
	// ErrNotFound: entity or relationship id unknown.
	ErrNotFound = errors.New("not found")

	// ErrSchemaNotFound: no active schema exists for an entity type. Fatal
	// for writes; reads of stored data remain possible.
	ErrSchemaNotFound = errors.New("no active schema for entity type")

	// ErrSchemaConflict: a schema document with the same id but a different
	// definition already exists.
	ErrSchemaConflict = errors.New("schema document already exists")

	// ErrDanglingReference: a relationship endpoint or tenant reference does
	// not resolve to a stored entity.
	ErrDanglingReference = errors.New("referenced entity does not exist")

	// ErrDuplicateRelationship: an identical currently-valid edge exists and
	// the caller asked for the error conflict policy.
	ErrDuplicateRelationship = errors.New("relationship already exists")

	// ErrInvalidInput: a caller-supplied argument is missing or malformed
	// before any storage work happens. Maps to 400, never 500.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConcurrentModification: an optimistic version check failed after
	// retries. Recoverable: re-read and retry.
	ErrConcurrentModification = errors.New("E_VERSION - concurrent modification, refresh and retry")

	// ErrIntegrity: a stored invariant is broken (for example two active
	// schema documents for one entity type). Never resolved silently.
	ErrIntegrity = errors.New("storage integrity violation")
)

// ValidationError carries every violation found in one validation pass so a
// caller can correct all of them in a single round trip.
type ValidationError struct {
	Violations []validation.Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Violations[0].Field, e.Violations[0].Message)
	}
	return fmt.Sprintf("validation failed: %d violations", len(e.Violations))
}

// CustomError is the HTTP-facing error shape used by the fiber error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}
