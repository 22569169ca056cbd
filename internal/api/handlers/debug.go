package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

// canonicalExampleRequest is the worked example returned alongside every
// /v1/debug/request response, so callers can diff their payload against a
// known-valid one.
var canonicalExampleRequest = models.ChatRequest{
	Model:    "claude-3-5-haiku-20241022",
	Messages: []models.Message{{Role: "user", Content: "hello"}},
}

// DebugRequest handles POST /v1/debug/request: echoes the request with
// Authorization redacted, the validation verdict, and a canonical example
// (§4.8). Gated on DEBUG_MODE — disabled by default since it reflects
// request bodies back to the caller.
func (h *Handlers) DebugRequest(c *fiber.Ctx) error {
	if !h.DebugMode {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apierror.Validation(
			[]validator.FieldError{{Field: "body", Kind: "type_mismatch", Message: err.Error()}},
			"request body is not valid JSON"))
	}

	report, apiErr := validator.Validate(&req)

	headers := map[string]string{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if strings.EqualFold(k, "authorization") {
			headers[k] = "[REDACTED]"
			return
		}
		headers[k] = string(value)
	})

	verdict := "valid"
	var errDetails any
	if apiErr != nil {
		verdict = "invalid"
		errDetails = apiErr.Details
	}

	return c.JSON(fiber.Map{
		"request":          req,
		"headers":          headers,
		"compatibility":    report,
		"validation":       verdict,
		"validation_error": errDetails,
		"example":          canonicalExampleRequest,
	})
}
