// Package config parses the gateway's flag/environment configuration using
// the same namsral/flag unification the teacher service uses, so every
// setting is addressable by both a command-line flag and an env var.
package config

import (
	"time"

	flag "github.com/namsral/flag"
)

// Config holds every tunable the gateway reads at startup.
type Config struct {
	Port        string
	CORSOrigins string
	APIKey      string
	DebugMode   bool
	Verbose     bool

	LogLevel     string
	OTLPEndpoint string
	ServiceName  string

	ClaudePath             string
	MaxTimeout             time.Duration
	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration
	HeartbeatInterval      time.Duration
	SessionsWriteAPI       bool
	ModelConfigPath        string
}

// Load parses flags and environment variables into a Config. It must be
// called at most once per process (namsral/flag registers on the package-
// level flag.CommandLine set).
func Load() *Config {
	cfg := &Config{}

	var maxTimeoutSec, sessionTTLSec, sessionCleanupSec, heartbeatSec int

	flag.StringVar(&cfg.Port, "port", "8080", "server listen port")
	flag.StringVar(&cfg.CORSOrigins, "cors_origins", "*", "comma-separated list of allowed CORS origins")
	flag.StringVar(&cfg.APIKey, "api_key", "", "if set, required as a bearer token on every request")
	flag.BoolVar(&cfg.DebugMode, "debug_mode", false, "enable /v1/debug/request")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "verbose request/response logging")

	flag.StringVar(&cfg.LogLevel, "log_level", "info", "log level")
	flag.StringVar(&cfg.OTLPEndpoint, "otel_exporter_otlp_endpoint", "", "OTLP exporter endpoint")
	flag.StringVar(&cfg.ServiceName, "service_name", "claudex-gateway", "service name")

	flag.StringVar(&cfg.ClaudePath, "claude_path", "", "explicit path to the claude CLI binary (otherwise auto-resolved)")
	flag.IntVar(&maxTimeoutSec, "max_timeout", 600, "maximum seconds a single completion request may run")
	flag.IntVar(&sessionTTLSec, "session_ttl", 3600, "seconds a session survives without activity")
	flag.IntVar(&sessionCleanupSec, "session_cleanup_interval", 300, "seconds between session sweeper passes")
	flag.IntVar(&heartbeatSec, "heartbeat_interval", 15, "seconds between SSE heartbeat comments")
	flag.BoolVar(&cfg.SessionsWriteAPI, "sessions_write_api", false, "enable the /v1/sessions write endpoints")
	flag.StringVar(&cfg.ModelConfigPath, "model_config_path", "claudex.yaml", "optional YAML file extending the model allowlist")

	flag.Parse()

	cfg.MaxTimeout = time.Duration(maxTimeoutSec) * time.Second
	cfg.SessionTTL = time.Duration(sessionTTLSec) * time.Second
	cfg.SessionCleanupInterval = time.Duration(sessionCleanupSec) * time.Second
	cfg.HeartbeatInterval = time.Duration(heartbeatSec) * time.Second

	return cfg
}
