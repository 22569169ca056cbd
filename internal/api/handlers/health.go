package handlers

import "github.com/gofiber/fiber/v2"

// Health handles GET /health: always answers without touching Claude
// (§4.8).
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": h.ServiceName,
	})
}
