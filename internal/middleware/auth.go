package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
)

// AuthAny validates that the request carries a valid bearer token
func AuthAny(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, db, nil, "documents.authorization")
	}
}

// AuthLawyer validates the bearer token and requires the lawyer role
func AuthLawyer(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, db, []types.Role{types.RoleLawyer}, "documents.authorization.lawyer")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, cfg *config.Config, db *gorm.DB, roles []types.Role, errorType string) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return types.NewForbiddenError("Authorization bearer token not found", errorType)
	}

	user, err := services.ValidateToken(cfg, db, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return types.NewForbiddenError("Invalid token", errorType)
	}

	if len(roles) > 0 {
		allowed := false
		for _, role := range roles {
			if user.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			return types.NewForbiddenError("Insufficient role", errorType)
		}
	}

	c.Locals("user", user)
	return c.Next()
}

// CurrentUser returns the authenticated user stored by the auth middleware.
func CurrentUser(c *fiber.Ctx) models.User {
	user, _ := c.Locals("user").(models.User)
	return user
}
