package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localforge/entitydb/internal/validation"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// VersionErrorResponse sends a version conflict error (409)
func VersionErrorResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":       fiber.StatusConflict,
		"message":      "E_VERSION - Refresh and reconcile with current version and retry.",
		"ok":           false,
		"versionError": true,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         "version",
	})
}

// ValidationErrorResponse sends a 422 carrying every violation so the caller
// can correct all of them in one round trip.
func ValidationErrorResponse(c *fiber.Ctx, violations []validation.Violation) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"status":     fiber.StatusUnprocessableEntity,
		"message":    "Validation failed",
		"ok":         false,
		"violations": violations,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"url":        c.OriginalURL(),
		"type":       "validation",
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// PageResponse sends one page of a cursor-paginated scan.
func PageResponse(c *fiber.Ctx, items interface{}, nextCursor interface{}) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":    true,
		"items": items,
		"next":  nextCursor,
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
	Type         string `json:"type,omitempty"`
	VersionError bool   `json:"versionError,omitempty"`
}

// ViolationResponseStruct defines the schema for validation error responses
type ViolationResponseStruct struct {
	Status     int                    `json:"status"`
	Message    string                 `json:"message"`
	Ok         bool                   `json:"ok"`
	Violations []validation.Violation `json:"violations"`
	Timestamp  string                 `json:"timestamp"`
	URL        string                 `json:"url"`
	Type       string                 `json:"type"`
}
