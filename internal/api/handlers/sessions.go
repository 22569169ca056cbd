package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/session"
)

// ListSessions handles GET /v1/sessions: summaries ordered by last_accessed
// descending (§4.3 List).
func (h *Handlers) ListSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": h.Sessions.List()})
}

// GetSession handles GET /v1/sessions/{id}.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	s, err := h.Sessions.Get(id)
	if err != nil {
		return writeError(c, apierror.New(apierror.KindNotFound, "session_not_found", "unknown session id"))
	}
	return c.JSON(session.Summary{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed,
		ExpiresAt:    s.ExpiresAt,
		MessageCount: len(s.Messages),
	})
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (h *Handlers) DeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.Sessions.Delete(id) {
		return writeError(c, apierror.New(apierror.KindNotFound, "session_not_found", "unknown session id"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SessionStats handles GET /v1/sessions/stats (§4.3 Stats).
func (h *Handlers) SessionStats(c *fiber.Ctx) error {
	return c.JSON(h.Sessions.Stats())
}

// CreateSession and PatchSession are the optional write-API extension of
// §4.8: they must return 404/405 rather than silently accept when the
// extension is disabled (the default), and only a minimal metadata update
// when it is enabled — the gateway does not persist arbitrary session
// metadata beyond what the session store models (system_prompt/max_turns
// are carried by the translator per-request, not stored server-side).
func (h *Handlers) CreateSession(c *fiber.Ctx) error {
	if !h.SessionsWriteAPI {
		return c.SendStatus(fiber.StatusNotFound)
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := c.BodyParser(&body); err != nil || body.ID == "" {
		return writeError(c, apierror.Validation(nil, "id is required to create a session"))
	}
	s := h.Sessions.GetOrCreate(body.ID)
	return c.Status(fiber.StatusCreated).JSON(session.Summary{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed,
		ExpiresAt:    s.ExpiresAt,
		MessageCount: len(s.Messages),
	})
}

// PatchSession is not implemented: the session store has no mutable
// metadata beyond its message log, so there is nothing for PATCH to
// update. It returns 405 regardless of the write-API flag.
func (h *Handlers) PatchSession(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusMethodNotAllowed)
}
