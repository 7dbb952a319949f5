package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/handlers"
	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.Variable{},
		&models.Signature{},
		&models.Folder{},
		&models.Tag{},
		&models.UserGrant{},
		&models.RoleGrant{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role types.Role) models.User {
	t.Helper()
	user := models.User{Email: email, Name: email, Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

// asUser injects the acting user the way the auth middleware does.
func asUser(user models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return c.Next()
	}
}

func testConfig() *config.Config {
	return &config.Config{SignDeadlineDays: 30}
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func TestCreateAndGetDocument(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	handler := &handlers.DocumentHandler{DB: db, Cfg: testConfig()}

	app := fiber.New()
	app.Use(asUser(lawyer))
	app.Post("/api/dynamic-documents/", handler.CreateDocument)
	app.Get("/api/dynamic-documents/:id", handler.GetDocument)

	body := jsonBody(t, map[string]interface{}{
		"title":   "Contrato",
		"content": "cuerpo",
		"variables": []map[string]interface{}{
			{"name": "nombre", "field_type": "text"},
		},
	})
	req := httptest.NewRequest("POST", "/api/dynamic-documents/", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	var created models.Document
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.State != models.StateDraft || created.Title != "Contrato" {
		t.Errorf("Unexpected document: %+v", created)
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/dynamic-documents/%d", created.DocumentID), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestGetDocumentHiddenIs404(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	stranger := seedUser(t, db, "stranger@example.com", types.RoleClient)

	doc, err := services.CreateDraft(db, lawyer, services.DocumentInput{Title: "Privado", Content: "x"})
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}

	handler := &handlers.DocumentHandler{DB: db, Cfg: testConfig()}
	app := fiber.New()
	app.Use(asUser(stranger))
	app.Get("/api/dynamic-documents/:id", handler.GetDocument)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/dynamic-documents/%d", doc.DocumentID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Expected 404 for invisible document, got %d", resp.StatusCode)
	}
}

func TestCreateDocumentForbiddenForClient(t *testing.T) {
	db := setupTestDB(t)
	client := seedUser(t, db, "client@example.com", types.RoleClient)

	handler := &handlers.DocumentHandler{DB: db, Cfg: testConfig()}
	app := fiber.New()
	app.Use(asUser(client))
	app.Post("/api/dynamic-documents/", handler.CreateDocument)

	req := httptest.NewRequest("POST", "/api/dynamic-documents/", jsonBody(t, map[string]string{"title": "X"}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}
}

func TestPublishVersionConflict(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	doc, _ := services.CreateDraft(db, lawyer, services.DocumentInput{Title: "T", Content: "body"})

	handler := &handlers.DocumentHandler{DB: db, Cfg: testConfig()}
	app := fiber.New()
	app.Use(asUser(lawyer))
	app.Post("/api/dynamic-documents/:id/publish", handler.Publish)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/dynamic-documents/%d/publish", doc.DocumentID),
		jsonBody(t, map[string]uint64{"version": doc.DocumentVersion + 3}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out["versionError"] != true {
		t.Errorf("Expected versionError true, got %v", out)
	}

	// Correct version succeeds and reports the new version
	req = httptest.NewRequest("POST", fmt.Sprintf("/api/dynamic-documents/%d/publish", doc.DocumentID),
		jsonBody(t, map[string]uint64{"version": doc.DocumentVersion}))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out["newVersion"] != "1" {
		t.Errorf("Expected newVersion 1, got %v", out["newVersion"])
	}
}

func TestActionsEndpoint(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	doc, _ := services.CreateDraft(db, lawyer, services.DocumentInput{Title: "T", Content: "body"})

	handler := &handlers.DocumentHandler{DB: db, Cfg: testConfig()}
	app := fiber.New()
	app.Use(asUser(lawyer))
	app.Get("/api/dynamic-documents/:id/actions", handler.Actions)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/dynamic-documents/%d/actions", doc.DocumentID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var actions []services.Action
	if err := json.NewDecoder(resp.Body).Decode(&actions); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(actions) == 0 || actions[0].Key != "publish" {
		t.Errorf("Expected publish first in draft menu, got %+v", actions)
	}
}

func TestFolderRoutes(t *testing.T) {
	db := setupTestDB(t)
	client := seedUser(t, db, "client@example.com", types.RoleClient)

	handler := &handlers.FolderHandler{DB: db}
	app := fiber.New()
	app.Use(asUser(client))
	app.Post("/api/dynamic-documents/folders", handler.CreateFolder)
	app.Get("/api/dynamic-documents/folders", handler.ListFolders)
	app.Delete("/api/dynamic-documents/folders/:id", handler.DeleteFolder)

	req := httptest.NewRequest("POST", "/api/dynamic-documents/folders",
		jsonBody(t, map[string]interface{}{"name": "Arriendos", "color_id": 2}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var folder models.Folder
	if err := json.NewDecoder(resp.Body).Decode(&folder); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/dynamic-documents/folders", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var folders []models.Folder
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(folders) != 1 {
		t.Errorf("Expected 1 folder, got %d", len(folders))
	}

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/dynamic-documents/folders/%d", folder.FolderID), nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestSignatureRoutes(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	client := seedUser(t, db, "client@example.com", types.RoleClient)
	signer := seedUser(t, db, "ana@example.com", types.RoleBasic)

	tpl, _ := services.CreateDraft(db, lawyer, services.DocumentInput{Title: "T", Content: "body"})
	if _, err := services.Publish(db, tpl.DocumentID, tpl.DocumentVersion, lawyer); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	inst, err := services.Instantiate(db, tpl.DocumentID, client)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	v, err := services.Complete(db, inst.DocumentID, inst.DocumentVersion, client)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := services.Formalize(db, inst.DocumentID, v, client,
		[]services.SignerInput{{Email: signer.Email, Name: signer.Name}}, nil, 30*24*time.Hour); err != nil {
		t.Fatalf("Formalize failed: %v", err)
	}
	doc, _ := services.GetDocument(db, inst.DocumentID)
	token := doc.Signatures[0].Token

	handler := &handlers.SignatureHandler{DB: db}
	app := fiber.New()
	app.Use(asUser(signer))
	app.Post("/api/dynamic-documents/signatures/:token/sign", handler.Sign)

	req := httptest.NewRequest("POST", "/api/dynamic-documents/signatures/"+token+"/sign", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out["state"] != string(models.StateFullySigned) {
		t.Errorf("Expected FullySigned, got %v", out["state"])
	}

	// Re-signing a settled signature conflicts
	req = httptest.NewRequest("POST", "/api/dynamic-documents/signatures/"+token+"/sign", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != 409 {
		t.Errorf("Expected 409 for settled signature, got %d", resp.StatusCode)
	}
}

func TestPermissionsEndpointOwnership(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	other := seedUser(t, db, "other@example.com", types.RoleLawyer)
	doc, _ := services.CreateDraft(db, lawyer, services.DocumentInput{Title: "T", Content: "body"})

	handler := &handlers.PermissionHandler{DB: db}

	// The creating lawyer reads the permission state
	app := fiber.New()
	app.Use(asUser(lawyer))
	app.Get("/api/dynamic-documents/:id/permissions", handler.GetPermissions)
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/dynamic-documents/%d/permissions", doc.DocumentID), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200 for creator, got %d", resp.StatusCode)
	}

	// Another lawyer does not
	app = fiber.New()
	app.Use(asUser(other))
	app.Get("/api/dynamic-documents/:id/permissions", handler.GetPermissions)
	req = httptest.NewRequest("GET", fmt.Sprintf("/api/dynamic-documents/%d/permissions", doc.DocumentID), nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != 403 {
		t.Errorf("Expected 403 for non-creator, got %d", resp.StatusCode)
	}
}

func TestListDocumentsQueryParams(t *testing.T) {
	db := setupTestDB(t)
	lawyer := seedUser(t, db, "lawyer@example.com", types.RoleLawyer)
	services.CreateDraft(db, lawyer, services.DocumentInput{Title: "Contrato de arriendo", Content: "a"})
	services.CreateDraft(db, lawyer, services.DocumentInput{Title: "Pagaré", Content: "b"})

	handler := &handlers.DocumentHandler{DB: db, Cfg: testConfig()}
	app := fiber.New()
	app.Use(asUser(lawyer))
	app.Get("/api/dynamic-documents/", handler.ListDocuments)

	req := httptest.NewRequest("GET", "/api/dynamic-documents/?search=arriendo&states=Draft", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var docs []models.Document
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Contrato de arriendo" {
		t.Errorf("Expected filtered list, got %d", len(docs))
	}
}
