package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/claudex-gateway/claudex-gateway/internal/auth"
)

// APIKeyAuth rejects requests missing a valid `Authorization: Bearer <key>`
// header when apiKey is configured (§6: all endpoints except /health
// require it). The comparison is constant-time (auth.ValidKey).
func APIKeyAuth(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}

		header := c.Get("Authorization")
		const prefix = "bearer "
		if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			return unauthorized(c)
		}
		presented := header[len(prefix):]

		if !auth.ValidKey(apiKey, presented) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{
			"message": "missing or invalid bearer token",
			"type":    "authentication_error",
			"code":    "invalid_api_key",
		},
	})
}
