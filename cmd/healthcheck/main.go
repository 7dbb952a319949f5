package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/database"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/utils"
)

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

	// Perform health check
	result := services.HealthCheck(cfg, db)

	// The container healthcheck also verifies the HTTP listener
	if err := utils.PingAPI("http://localhost:" + cfg.Port); err != nil {
		result.Status = "unhealthy"
		result.Details["api"] = "unreachable"
		result.ErrorMessage = fmt.Sprintf("API listener unreachable: %v", err)
	} else {
		result.Details["api"] = "ok"
	}

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
