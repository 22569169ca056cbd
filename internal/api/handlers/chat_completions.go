package handlers

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/streaming"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

// ChatCompletions handles POST /v1/chat/completions, branching on
// req.Stream (§4.8).
func (h *Handlers) ChatCompletions(c *fiber.Ctx) error {
	start := time.Now()
	h.Metrics.IncrementActive()
	defer h.Metrics.DecrementActive()

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apierror.Validation(
			[]validator.FieldError{{Field: "body", Kind: "type_mismatch", Message: err.Error()}},
			"request body is not valid JSON"))
	}

	overrides, hdrErr := validator.ParseHeaders(func(key string) string { return c.Get(key) })
	if hdrErr != nil {
		return writeError(c, hdrErr)
	}

	if _, apiErr := validator.Validate(&req); apiErr != nil {
		h.Metrics.RecordError("validation_error")
		return writeError(c, apiErr)
	}

	if req.Stream {
		return h.streamChatCompletion(c, &req, overrides, start)
	}
	return h.nonStreamChatCompletion(c, &req, overrides, start)
}

func (h *Handlers) nonStreamChatCompletion(c *fiber.Ctx, req *models.ChatRequest, overrides validator.HeaderOverrides, start time.Time) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.maxTimeout())
	defer cancel()

	resp, apiErr := h.Service.Complete(ctx, req, overrides)
	if apiErr != nil {
		h.Metrics.RecordError(string(apiErr.Kind))
		h.Metrics.RecordRequest("error", false, time.Since(start).Seconds())
		return writeError(c, apiErr)
	}

	h.Metrics.RecordRequest("success", false, time.Since(start).Seconds())
	return c.JSON(resp)
}

func (h *Handlers) streamChatCompletion(c *fiber.Ctx, req *models.ChatRequest, overrides validator.HeaderOverrides, start time.Time) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithTimeout(context.Background(), h.maxTimeout())
	h.Metrics.StreamingActive.Inc()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer h.Metrics.StreamingActive.Dec()
		defer func() {
			h.Metrics.RecordRequest("success", true, time.Since(start).Seconds())
		}()

		manager := streaming.NewManager(w, cancel, h.HeartbeatInterval, h.Metrics, h.Logger)
		go manager.RunHeartbeat()

		h.Service.Stream(ctx, req, overrides, manager)
		manager.Finalize(ctx.Err() == context.DeadlineExceeded)
	}))

	return nil
}

func (h *Handlers) maxTimeout() time.Duration {
	if h.MaxTimeout > 0 {
		return h.MaxTimeout
	}
	return 10 * time.Minute
}

// writeError renders an *apierror.Error as the OpenAI-compatible error
// envelope with its mapped HTTP status (§7): the single place outside a
// stream where kind maps to status.
func writeError(c *fiber.Ctx, err *apierror.Error) error {
	return c.Status(err.Status()).JSON(err.Response())
}
