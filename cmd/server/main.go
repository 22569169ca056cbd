package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/claudex-gateway/claudex-gateway/internal/api"
	"github.com/claudex-gateway/claudex-gateway/internal/api/handlers"
	"github.com/claudex-gateway/claudex-gateway/internal/auth"
	"github.com/claudex-gateway/claudex-gateway/internal/claude"
	"github.com/claudex-gateway/claudex-gateway/internal/config"
	"github.com/claudex-gateway/claudex-gateway/internal/observability"
	"github.com/claudex-gateway/claudex-gateway/internal/service"
	"github.com/claudex-gateway/claudex-gateway/internal/session"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	logger.Info("starting server",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"otlp_endpoint", cfg.OTLPEndpoint,
	)

	if cfg.OTLPEndpoint != "" {
		tp, err := observability.InitTracer(context.Background(), cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("failed to initialize tracer", "error", err.Error())
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					logger.Error("failed to shutdown tracer", "error", err.Error())
				}
			}()
			logger.Info("tracer initialized", "endpoint", cfg.OTLPEndpoint)
		}
	}

	metrics := observability.InitMetrics()
	logger.Info("metrics initialized")

	if overrides, err := config.LoadModelOverrides(cfg.ModelConfigPath); err != nil {
		logger.Warn("failed to load model config", "path", cfg.ModelConfigPath, "error", err.Error())
	} else if len(overrides.AdditionalModels) > 0 {
		validator.ExtendAllowlist(overrides.AdditionalModels)
		logger.Info("extended model allowlist", "models", overrides.AdditionalModels)
	}

	resolver := claude.NewResolver(cfg.ClaudePath)
	claudeClient := claude.NewClient(resolver, logger)
	if available, cliVersion, err := claudeClient.Verify(context.Background()); err != nil {
		logger.Warn("claude CLI is not available, some features may not work", "error", err.Error())
	} else if available {
		logger.Info("claude CLI is available", "version", cliVersion)
	}

	sessions := session.NewStore(cfg.SessionTTL, cfg.SessionCleanupInterval)
	sweeperStop := make(chan struct{})
	go sessions.Run(sweeperStop)

	authProvider := auth.NewEnvProvider()

	svc := service.New(sessions, claudeClient, authProvider, "", cfg.MaxTimeout, logger, metrics)

	h := handlers.New(
		svc, sessions, authProvider, logger, metrics,
		cfg.ServiceName, version,
		cfg.APIKey != "", cfg.SessionsWriteAPI, cfg.DebugMode,
		cfg.HeartbeatInterval, cfg.MaxTimeout,
	)

	app := fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Minute,
		WriteTimeout:          10 * time.Minute,
	})

	app.Use(recover.New())

	api.RegisterRoutes(app, h, logger, cfg.APIKey, cfg.CORSOrigins, cfg.Verbose)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig.String())

		close(sweeperStop)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("error during shutdown", "error", err.Error())
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
