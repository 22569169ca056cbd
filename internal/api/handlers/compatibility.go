package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

// Compatibility handles POST /v1/compatibility: runs the validator on the
// body and returns its report without invoking Claude (§4.8).
func (h *Handlers) Compatibility(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apierror.Validation(
			[]validator.FieldError{{Field: "body", Kind: "type_mismatch", Message: err.Error()}},
			"request body is not valid JSON"))
	}

	report, _ := validator.Validate(&req)
	return c.JSON(report)
}
