// Package handlers implements the Router/Handlers component (§4.8):
// request parsing, dispatch to the validator/service/streaming layers, and
// response shaping for every HTTP endpoint the gateway exposes.
package handlers

import (
	"time"

	"github.com/claudex-gateway/claudex-gateway/internal/auth"
	"github.com/claudex-gateway/claudex-gateway/internal/observability"
	"github.com/claudex-gateway/claudex-gateway/internal/service"
	"github.com/claudex-gateway/claudex-gateway/internal/session"
)

// Handlers bundles the dependencies every endpoint needs. One instance is
// constructed at startup and shared across requests (§9: explicit
// process-wide state passed to handlers, never a module-level global).
type Handlers struct {
	Service           *service.Service
	Sessions          *session.Store
	Auth              auth.Provider
	Logger            *observability.Logger
	Metrics           *observability.Metrics
	ServiceName       string
	Version           string
	APIKeyRequired    bool
	SessionsWriteAPI  bool
	HeartbeatInterval time.Duration
	MaxTimeout        time.Duration
	DebugMode         bool
}

// New builds a Handlers bundle.
func New(svc *service.Service, sessions *session.Store, authProvider auth.Provider, logger *observability.Logger, metrics *observability.Metrics, serviceName, version string, apiKeyRequired, sessionsWriteAPI, debugMode bool, heartbeatInterval, maxTimeout time.Duration) *Handlers {
	return &Handlers{
		Service:           svc,
		Sessions:          sessions,
		Auth:              authProvider,
		Logger:            logger,
		Metrics:           metrics,
		ServiceName:       serviceName,
		Version:           version,
		APIKeyRequired:    apiKeyRequired,
		SessionsWriteAPI:  sessionsWriteAPI,
		HeartbeatInterval: heartbeatInterval,
		MaxTimeout:        maxTimeout,
		DebugMode:         debugMode,
	}
}
