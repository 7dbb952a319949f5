package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const currentAPIVersion = "1.0.0"

// VersionMiddleware parses the X-Api-Version request header, stores it in
// context and echoes the version served back on the response.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", currentAPIVersion)

		// Support version aliases
		if version == "1.0" {
			version = currentAPIVersion
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", currentAPIVersion)

		return c.Next()
	}
}
