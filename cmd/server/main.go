package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/database"
	"github.com/lexkeep/dyndocs/internal/handlers"
	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"

	_ "github.com/lexkeep/dyndocs/docs/api" // Swagger docs
)

// @title DynDocs API
// @version 1.0.0
// @description Legal document lifecycle, permissions, folders and signature workflows
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/lexkeep/dyndocs

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("dyndocs")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	healthHandler := &handlers.HealthHandler{DB: db, Cfg: cfg}
	documentHandler := &handlers.DocumentHandler{DB: db, Cfg: cfg}
	folderHandler := &handlers.FolderHandler{DB: db}
	tagHandler := &handlers.TagHandler{DB: db}
	permissionHandler := &handlers.PermissionHandler{DB: db}
	signatureHandler := &handlers.SignatureHandler{DB: db}

	api.Get("/health", healthHandler.Health)
	api.Get("/validate_token", middleware.AuthAny(cfg, db), authHandler.ValidateToken)

	docs := api.Group("/dynamic-documents", middleware.AuthAny(cfg, db))

	// Fixed-segment routes are registered before /:id so they are not
	// captured by the id parameter.
	docs.Get("/folders", folderHandler.ListFolders)
	docs.Post("/folders", folderHandler.CreateFolder)
	docs.Get("/folders/:id", folderHandler.GetFolder)
	docs.Patch("/folders/:id", folderHandler.UpdateFolder)
	docs.Put("/folders/:id", folderHandler.UpdateFolder)
	docs.Delete("/folders/:id", folderHandler.DeleteFolder)
	docs.Post("/folders/:id/documents", folderHandler.AddDocuments)
	docs.Delete("/folders/:id/documents", folderHandler.RemoveDocuments)

	docs.Get("/tags", tagHandler.ListTags)
	docs.Post("/tags", middleware.AuthLawyer(cfg, db), tagHandler.CreateTag)
	docs.Delete("/tags/:id", middleware.AuthLawyer(cfg, db), tagHandler.DeleteTag)

	docs.Get("/permissions/clients", middleware.AuthLawyer(cfg, db), permissionHandler.ListClients)
	docs.Get("/permissions/roles", middleware.AuthLawyer(cfg, db), permissionHandler.ListRoles)

	docs.Post("/signatures/:token/sign", signatureHandler.Sign)
	docs.Post("/signatures/:token/reject", signatureHandler.Reject)

	docs.Get("/", documentHandler.ListDocuments)
	docs.Post("/", middleware.AuthLawyer(cfg, db), documentHandler.CreateDocument)
	docs.Get("/:id", documentHandler.GetDocument)
	docs.Patch("/:id", documentHandler.UpdateDocument)
	docs.Delete("/:id", documentHandler.DeleteDocument)
	docs.Post("/:id/publish", middleware.AuthLawyer(cfg, db), documentHandler.Publish)
	docs.Post("/:id/draft", documentHandler.MoveToDraft)
	docs.Post("/:id/use-template", documentHandler.UseTemplate)
	docs.Post("/:id/complete", documentHandler.Complete)
	docs.Post("/:id/formalize", documentHandler.Formalize)
	docs.Get("/:id/actions", documentHandler.Actions)
	docs.Get("/:id/permissions", middleware.AuthLawyer(cfg, db), permissionHandler.GetPermissions)
	docs.Patch("/:id/permissions", middleware.AuthLawyer(cfg, db), permissionHandler.UpdatePermissions)

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

	// Background sweep for overdue signature deadlines
	stopSweep := make(chan struct{})
	go expirySweep(db, time.Duration(cfg.ExpirySweepMinutes)*time.Minute, stopSweep)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		close(stopSweep)
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

// expirySweep periodically expires documents whose signature deadline passed.
func expirySweep(db *gorm.DB, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			expired, err := services.ExpireOverdue(db, now)
			if err != nil {
				log.Printf("Expiry sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("Expiry sweep: %d document(s) expired", expired)
			}
		}
	}
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Check for middleware/service custom errors
	var customErr *types.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
		errorType = customErr.Type
	}

	// Check for version errors
	versionError := false
	if code == fiber.StatusConflict || (message != "" && len(message) >= 9 && message[:9] == "E_VERSION") {
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
