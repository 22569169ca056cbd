package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

// ListModels handles GET /v1/models (§6): a static list keyed by the
// model allowlist.
func (h *Handlers) ListModels(c *fiber.Ctx) error {
	ids := make([]string, 0, len(validator.AllowedModels))
	for id := range validator.AllowedModels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data := make([]models.ModelInfo, 0, len(ids))
	for _, id := range ids {
		data = append(data, models.ModelInfo{ID: id, Object: "model", OwnedBy: "anthropic"})
	}

	return c.JSON(models.ModelList{Object: "list", Data: data})
}
