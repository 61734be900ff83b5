package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localforge/entitydb/internal/config"
	"github.com/localforge/entitydb/internal/database"
	"github.com/localforge/entitydb/internal/handlers"
	"github.com/localforge/entitydb/internal/middleware"
	"github.com/localforge/entitydb/internal/services"
	"github.com/localforge/entitydb/internal/types"

	_ "github.com/localforge/entitydb/docs/api" // Swagger docs
)

// @title EntityDB API
// @version 1.0.0
// @description Polymorphic, schema-validated entity store with an append-only event log and a temporally-scoped relationship graph
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localforge/entitydb

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Entity store policy knobs
	services.TenantEntityTypes = cfg.TenantEntityTypes
	services.UpdateRetries = cfg.UpdateRetries

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("entitydb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	entityHandler := &handlers.EntityHandler{DB: db}
	schemaHandler := &handlers.SchemaHandler{DB: db}
	eventHandler := &handlers.EventHandler{DB: db}
	relationshipHandler := &handlers.RelationshipHandler{DB: db}

	// Entity store routes
	api.Post("/entities", entityHandler.CreateEntity)
	api.Get("/entities", entityHandler.ListEntities)
	api.Get("/entities/:id", entityHandler.GetEntity)
	api.Patch("/entities/:id", entityHandler.UpdateEntity)
	api.Put("/entities/:id/status", entityHandler.SetEntityStatus)

	// Schema registry routes
	api.Post("/schemas", schemaHandler.RegisterSchema)
	api.Get("/schemas/:entityType", schemaHandler.ListSchemaHistory)
	api.Get("/schemas/:entityType/active", schemaHandler.GetActiveSchema)
	api.Get("/schemas/:entityType/versions/:version", schemaHandler.GetSchemaVersion)

	// Event log routes (read path only, the log is append-only audit data)
	api.Get("/events", eventHandler.QueryEvents)

	// Relationship graph routes
	api.Post("/relationships", relationshipHandler.Connect)
	api.Get("/relationships/:id", relationshipHandler.GetRelationship)
	api.Delete("/relationships/:id", relationshipHandler.Disconnect)
	api.Get("/entities/:id/relationships", relationshipHandler.Neighbors)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	// Check if it's a store error surfaced raw
	var customErr *types.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
		errorType = customErr.Type
	}

	// Check for version errors
	versionError := false
	if code == fiber.StatusConflict || strings.HasPrefix(message, "E_VERSION") {
		versionError = true
		errorType = "version"
		code = fiber.StatusConflict
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       code,
		"message":      message,
		"ok":           false,
		"versionError": versionError,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         errorType,
	})
}
