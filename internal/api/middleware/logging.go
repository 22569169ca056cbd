package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/claudex-gateway/claudex-gateway/internal/observability"
)

// Logging creates a middleware that logs requests. When verbose is true,
// the start-of-request line additionally carries the query string, the
// request content length and the header names present, and the completion
// line carries the response body size — the VERBOSE environment knob's
// only effect (§6).
func Logging(logger *observability.Logger, verbose bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := GetRequestID(c)

		startArgs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID,
			"ip", c.IP(),
		}
		if verbose {
			startArgs = append(startArgs,
				"query", string(c.Request().URI().QueryString()),
				"content_length", c.Request().Header.ContentLength(),
				"headers", headerNames(c),
			)
		}
		logger.Info("request started", startArgs...)

		// Process request
		err := c.Next()

		// Calculate duration
		duration := time.Since(start)

		completeArgs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", duration.Milliseconds(),
			"request_id", requestID,
		}
		if verbose {
			completeArgs = append(completeArgs, "response_bytes", len(c.Response().Body()))
		}
		logger.Info("request completed", completeArgs...)

		return err
	}
}

// headerNames lists the request header names present, for verbose logging
// (never their values, to avoid leaking Authorization or similar).
func headerNames(c *fiber.Ctx) []string {
	var names []string
	c.Request().Header.VisitAll(func(key, _ []byte) {
		names = append(names, string(key))
	})
	return names
}
