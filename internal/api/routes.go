package api

import (
	"strings"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/claudex-gateway/claudex-gateway/internal/api/handlers"
	"github.com/claudex-gateway/claudex-gateway/internal/api/middleware"
	"github.com/claudex-gateway/claudex-gateway/internal/observability"
)

// RegisterRoutes wires every endpoint of §6 onto app. Middleware order is
// explicit composition per §9 (no reflection-based decoration): request
// id, then tracing, then CORS, then logging, then auth, then the handler.
// corsOrigins is the comma-separated CORS_ORIGINS knob ("*" allows any
// origin); verbose enables extra request/response logging fields.
func RegisterRoutes(app *fiber.App, h *handlers.Handlers, logger *observability.Logger, apiKey, corsOrigins string, verbose bool) {
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware(otelfiber.WithServerName(h.ServiceName)))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.TrimSpace(corsOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))
	app.Use(middleware.Logging(logger, verbose))

	// /health and /metrics are exempt from bearer auth.
	app.Get("/health", h.Health)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())(c.Context())
		return nil
	})

	authed := app.Group("", middleware.APIKeyAuth(apiKey))

	v1 := authed.Group("/v1")
	v1.Post("/chat/completions", h.ChatCompletions)
	v1.Get("/models", h.ListModels)
	v1.Get("/auth/status", h.AuthStatus)
	v1.Post("/compatibility", h.Compatibility)
	v1.Post("/debug/request", h.DebugRequest)

	// Static /sessions/stats is registered before the /sessions/:id
	// wildcard so it is matched first.
	v1.Get("/sessions/stats", h.SessionStats)
	v1.Get("/sessions", h.ListSessions)
	v1.Post("/sessions", h.CreateSession)
	v1.Get("/sessions/:id", h.GetSession)
	v1.Patch("/sessions/:id", h.PatchSession)
	v1.Delete("/sessions/:id", h.DeleteSession)
}
