package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/database"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
	"github.com/lexkeep/dyndocs/tests/helpers"
)

// TestE2EWithFullStack tests the entire service stack
func TestE2EWithFullStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	ctx := context.Background()

	tc, err := helpers.CreateAllTestContainers(t)
	if err != nil {
		t.Fatalf("Failed to start test containers: %v", err)
	}
	defer tc.Terminate(t)

	serviceHost, _ := tc.ServiceContainer.Host(ctx)
	servicePort, _ := tc.ServiceContainer.MappedPort(ctx, "3000")
	baseURL := fmt.Sprintf("http://%s:%s", serviceHost, servicePort.Port())

	// Wait a bit for everything to stabilize
	time.Sleep(5 * time.Second)

	// Run E2E tests
	t.Run("HealthCheck", func(t *testing.T) {
		testHealthCheck(t, tc)
	})

	t.Run("PrometheusMetrics", func(t *testing.T) {
		testPrometheusMetrics(t, baseURL)
	})

	t.Run("SwaggerUI", func(t *testing.T) {
		testSwaggerUI(t, baseURL)
	})

	t.Run("AuthRequired", func(t *testing.T) {
		testAuthRequired(t, baseURL)
	})

	t.Run("DocumentFlow", func(t *testing.T) {
		testDocumentFlow(t, tc, baseURL)
	})
}

func testHealthCheck(t *testing.T, tc *helpers.TestContainers) {
	ctx := context.Background()

	// Point the config at the mapped ports on localhost, not internal container names
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	dbHost, _ := tc.DBContainer.Host(ctx)
	dbPort, _ := tc.DBContainer.MappedPort(ctx, "3306")
	cfg.DBHost = dbHost
	cfg.DBPort = dbPort.Port()

	gormDB, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	defer database.Close(gormDB)

	result := services.HealthCheck(cfg, gormDB)

	if result.Status != "healthy" {
		t.Errorf("Health check failed: %+v", result)
	}

	t.Logf("Health check passed: status=%s, database=%s", result.Status, result.Database)
}

func testPrometheusMetrics(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for metrics, got %d. Body: %s", resp.StatusCode, string(body))
	}

	t.Logf("Metrics endpoint working, found %d bytes of metrics", len(body))
}

func testSwaggerUI(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/swagger/index.html")
	if err != nil {
		t.Fatalf("Failed to get Swagger UI: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for Swagger UI, got %d", resp.StatusCode)
	}
}

func testAuthRequired(t *testing.T, baseURL string) {
	// Document routes reject requests without a bearer token
	resp, err := http.Get(baseURL + "/api/dynamic-documents/")
	if err != nil {
		t.Fatalf("Failed to access API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 403 {
		body, _ := io.ReadAll(resp.Body)
		t.Logf("Response body: %s", string(body))
		t.Errorf("Expected status 403, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Errorf("Response is not valid JSON: %v", err)
	}
}

// testDocumentFlow drives a template from draft to published over HTTP
func testDocumentFlow(t *testing.T, tc *helpers.TestContainers, baseURL string) {
	ctx := context.Background()

	// Seed users directly in the containerized database
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	dbHost, _ := tc.DBContainer.Host(ctx)
	dbPort, _ := tc.DBContainer.MappedPort(ctx, "3306")
	cfg.DBHost = dbHost
	cfg.DBPort = dbPort.Port()

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	defer database.Close(db)

	lawyer := helpers.SeedUser(t, db, "e2e-lawyer@example.com", "Lawyer", types.RoleLawyer)
	token := helpers.MakeToken(t, os.Getenv("JWT_SECRET"), lawyer)

	client := &http.Client{Timeout: 10 * time.Second}

	// Create a draft
	payload, _ := json.Marshal(map[string]interface{}{
		"title":   "Contrato E2E",
		"content": "cuerpo del contrato",
	})
	req, _ := http.NewRequest("POST", baseURL+"/api/dynamic-documents/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	helpers.AssertStatus(t, resp, 201)

	var created struct {
		DocumentID      uint64 `json:"id"`
		DocumentVersion uint64 `json:"document_version"`
		State           string `json:"state"`
	}
	helpers.ParseJSON(t, resp, &created)
	if created.State != "Draft" {
		t.Errorf("Expected Draft state, got %s", created.State)
	}

	// Publish it
	payload, _ = json.Marshal(map[string]uint64{"version": created.DocumentVersion})
	req, _ = http.NewRequest("POST",
		fmt.Sprintf("%s/api/dynamic-documents/%d/publish", baseURL, created.DocumentID),
		bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("Failed to publish document: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	// Retrieve it and check the transition landed
	req, _ = http.NewRequest("GET",
		fmt.Sprintf("%s/api/dynamic-documents/%d", baseURL, created.DocumentID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var fetched struct {
		State string `json:"state"`
	}
	helpers.ParseJSON(t, resp, &fetched)
	if fetched.State != "Published" {
		t.Errorf("Expected Published state, got %s", fetched.State)
	}
}
