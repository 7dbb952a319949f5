package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func setupApp(cfg *config.Config, db *gorm.DB, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if custom, ok := err.(*types.CustomError); ok {
				return c.Status(custom.Code).JSON(fiber.Map{"message": custom.Message, "type": custom.Type})
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
	app.Get("/protected", guard, func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		return c.JSON(fiber.Map{"email": user.Email})
	})
	return app
}

func TestAuthAnyRejectsMissingHeader(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTLMinutes: 60}
	app := setupApp(cfg, db, middleware.AuthAny(cfg, db))

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403 without Authorization header, got %d", resp.StatusCode)
	}
}

func TestAuthAnyRejectsMalformedToken(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTLMinutes: 60}
	app := setupApp(cfg, db, middleware.AuthAny(cfg, db))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403 for malformed token, got %d", resp.StatusCode)
	}
}

func TestAuthAnyAcceptsValidToken(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTLMinutes: 60}
	user := models.User{Email: "client@example.com", Name: "Client", Role: types.RoleClient}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	token, err := services.IssueToken(cfg, user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	app := setupApp(cfg, db, middleware.AuthAny(cfg, db))
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200 with valid token, got %d", resp.StatusCode)
	}
}

func TestAuthAnyRejectsUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTLMinutes: 60}
	ghost := models.User{Email: "ghost@example.com", Role: types.RoleClient}
	token, err := services.IssueToken(cfg, ghost)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	app := setupApp(cfg, db, middleware.AuthAny(cfg, db))
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403 for user missing from database, got %d", resp.StatusCode)
	}
}

func TestAuthLawyerRejectsClientRole(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTLMinutes: 60}
	client := models.User{Email: "client@example.com", Role: types.RoleClient}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	token, err := services.IssueToken(cfg, client)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	app := setupApp(cfg, db, middleware.AuthLawyer(cfg, db))
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403 for client on lawyer route, got %d", resp.StatusCode)
	}
}

func TestAuthTokenSignedWithWrongSecret(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTLMinutes: 60}
	user := models.User{Email: "lawyer@example.com", Role: types.RoleLawyer}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	token, err := services.IssueToken(&config.Config{JWTSecret: "other-secret", TokenTTLMinutes: 60}, user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	app := setupApp(cfg, db, middleware.AuthAny(cfg, db))
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403 for token signed with wrong secret, got %d", resp.StatusCode)
	}
}
