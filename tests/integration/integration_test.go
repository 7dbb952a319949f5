package integration_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/database"
	"github.com/lexkeep/dyndocs/internal/handlers"
	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
	"github.com/lexkeep/dyndocs/tests/helpers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// TestWithMariaDB tests the service with a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	// Get container host and port
	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
		JWTSecret:         "integration-secret",
		SignDeadlineDays:  30,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Run tests
	t.Run("DocumentLifecycle", func(t *testing.T) {
		testDocumentLifecycle(t, db)
	})

	t.Run("VersionControl", func(t *testing.T) {
		testVersionControl(t, db)
	})

	t.Run("SignatureWorkflow", func(t *testing.T) {
		testSignatureWorkflow(t, db)
	})

	t.Run("HiddenDocument404", func(t *testing.T) {
		testHiddenDocument404(t, db, cfg)
	})
}

// TestWithPostgreSQL tests the service with a real PostgreSQL container
func TestWithPostgreSQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start PostgreSQL container
	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("POSTGRES_IMAGE"),
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_USER":     "testuser",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	// Get container host and port
	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "postgres",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
		JWTSecret:         "integration-secret",
		SignDeadlineDays:  30,
	}

	// Wait for database to be ready
	time.Sleep(2 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Run tests
	t.Run("DocumentLifecycle", func(t *testing.T) {
		testDocumentLifecycle(t, db)
	})

	t.Run("VersionControl", func(t *testing.T) {
		testVersionControl(t, db)
	})

	t.Run("SignatureWorkflow", func(t *testing.T) {
		testSignatureWorkflow(t, db)
	})
}

// testDocumentLifecycle walks a template from draft to a completed instance
func testDocumentLifecycle(t *testing.T, db *gorm.DB) {
	lawyer := helpers.SeedUser(t, db, "lifecycle-lawyer@example.com", "Lawyer", types.RoleLawyer)
	client := helpers.SeedUser(t, db, "lifecycle-client@example.com", "Client", types.RoleClient)

	tpl, err := services.CreateDraft(db, lawyer, services.DocumentInput{
		Title:   "Contrato de arriendo",
		Content: "Entre {{arrendador}} y {{arrendatario}}",
		Variables: []services.VariableInput{
			{Name: "arrendador", FieldType: "text"},
			{Name: "arrendatario", FieldType: "text"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to create draft: %v", err)
	}

	version, err := services.Publish(db, tpl.DocumentID, tpl.DocumentVersion, lawyer)
	if err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}

	inst, err := services.Instantiate(db, tpl.DocumentID, client)
	if err != nil {
		t.Fatalf("Failed to instantiate: %v", err)
	}
	if inst.State != models.StateProgress {
		t.Errorf("Expected Progress state, got %s", inst.State)
	}
	if inst.DocumentID == tpl.DocumentID {
		t.Error("Expected a new document row for the instance")
	}

	// Completing without the required values must fail
	if _, err := services.Complete(db, inst.DocumentID, inst.DocumentVersion, client); err == nil {
		t.Error("Expected precondition error for incomplete variables")
	}

	required := true
	version, err = services.UpdateDocument(db, inst.DocumentID, inst.DocumentVersion, client, services.DocumentInput{
		Title:   inst.Title,
		Content: inst.Content,
		Variables: []services.VariableInput{
			{Name: "arrendador", FieldType: "text", Value: "Ana", Required: &required},
			{Name: "arrendatario", FieldType: "text", Value: "Luis", Required: &required},
		},
	})
	if err != nil {
		t.Fatalf("Failed to fill variables: %v", err)
	}

	if _, err := services.Complete(db, inst.DocumentID, version, client); err != nil {
		t.Fatalf("Failed to complete: %v", err)
	}

	doc, err := services.GetDocument(db, inst.DocumentID)
	if err != nil {
		t.Fatalf("Failed to retrieve instance: %v", err)
	}
	if doc.State != models.StateCompleted {
		t.Errorf("Expected Completed state, got %s", doc.State)
	}
}

// testVersionControl tests optimistic locking
func testVersionControl(t *testing.T, db *gorm.DB) {
	lawyer := helpers.SeedUser(t, db, "version-lawyer@example.com", "Lawyer", types.RoleLawyer)

	doc, err := services.CreateDraft(db, lawyer, services.DocumentInput{Title: "Versionado", Content: "x"})
	if err != nil {
		t.Fatalf("Failed to create draft: %v", err)
	}

	// Publish with a stale version
	_, err = services.Publish(db, doc.DocumentID, doc.DocumentVersion+5, lawyer)
	if !errors.Is(err, services.ErrVersion) {
		t.Errorf("Expected E_VERSION error, got: %v", err)
	}

	// Publish with the correct version
	if _, err := services.Publish(db, doc.DocumentID, doc.DocumentVersion, lawyer); err != nil {
		t.Errorf("Failed to publish with correct version: %v", err)
	}
}

// testSignatureWorkflow runs formalization and token-based signing end to end
func testSignatureWorkflow(t *testing.T, db *gorm.DB) {
	lawyer := helpers.SeedUser(t, db, "sig-lawyer@example.com", "Lawyer", types.RoleLawyer)
	signer := helpers.SeedUser(t, db, "sig-signer@example.com", "Signer", types.RoleBasic)

	doc := helpers.CreateTestDocument(t, db, "Pagaré", models.StateCompleted, lawyer.UserID)

	version, err := services.Formalize(db, doc.DocumentID, doc.DocumentVersion, lawyer,
		[]services.SignerInput{{Email: signer.Email, Name: signer.Name}}, nil, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Failed to formalize: %v", err)
	}
	if version == doc.DocumentVersion {
		t.Error("Expected version bump on formalize")
	}

	full, err := services.GetDocument(db, doc.DocumentID)
	if err != nil {
		t.Fatalf("Failed to retrieve document: %v", err)
	}
	if len(full.Signatures) != 1 {
		t.Fatalf("Expected 1 signature row, got %d", len(full.Signatures))
	}

	state, err := services.SignByToken(db, full.Signatures[0].Token, signer.Email)
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	if state != models.StateFullySigned {
		t.Errorf("Expected FullySigned, got %s", state)
	}

	// A settled signature cannot be reused
	if _, err := services.SignByToken(db, full.Signatures[0].Token, signer.Email); !errors.Is(err, services.ErrSignatureSettled) {
		t.Errorf("Expected settled signature error, got: %v", err)
	}
}

// testHiddenDocument404 tests the handler's 404 response for invisible documents with a real database
func testHiddenDocument404(t *testing.T, db *gorm.DB, cfg *config.Config) {
	lawyer := helpers.SeedUser(t, db, "hidden-lawyer@example.com", "Lawyer", types.RoleLawyer)
	stranger := helpers.SeedUser(t, db, "hidden-stranger@example.com", "Stranger", types.RoleClient)

	doc := helpers.CreateTestDocument(t, db, "Confidencial", models.StateDraft, lawyer.UserID)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", stranger)
		return c.Next()
	})
	handler := &handlers.DocumentHandler{DB: db, Cfg: cfg}
	app.Get("/api/dynamic-documents/:id", handler.GetDocument)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/dynamic-documents/%d", doc.DocumentID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 404)
}

// TestHealthCheck tests the health check functionality
func TestHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:     "mysql",
		DBHost:     host,
		DBPort:     port.Port(),
		DBDatabase: "testdb",
		DBUser:     "testuser",
		DBPassword: "testpass",
	}

	time.Sleep(5 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run health check
	result := services.HealthCheck(cfg, db)

	if result.Database != "ok" {
		t.Errorf("Expected database to be ok, got: %s", result.Database)
	}

	if result.Status != "healthy" {
		t.Errorf("Expected status to be healthy, got: %s", result.Status)
	}
}
