package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/services"
)

// AuthHandler handles auth routes
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// ValidateToken handles GET /api/validate_token
// @Summary Validate the bearer token
// @Description Validate the bearer token and return the user it names
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} models.User
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /validate_token [get]
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	// The auth middleware already validated the token.
	return c.Status(fiber.StatusOK).JSON(middleware.CurrentUser(c))
}

// HealthHandler handles the health route
type HealthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Health handles GET /api/health
// @Summary Service health
// @Description Report service and database health
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
