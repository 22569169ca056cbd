// Package auth resolves the credentials the gateway forwards to the Claude
// CLI subprocess and reports their presence without ever exposing values.
package auth

import (
	"crypto/subtle"
	"os"
)

// Status is the /v1/auth/status response shape: which credential source is
// configured, never the credential itself.
type Status struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"` // "api_key" | "oauth_token" | ""
}

// Provider supplies the environment variables the Claude CLI subprocess
// needs for authentication, and reports whether any are configured.
type Provider interface {
	// Environment returns the env vars to merge into the subprocess
	// environment (e.g. ANTHROPIC_API_KEY).
	Environment() map[string]string
	// Status reports which credential source is active, for the
	// /v1/auth/status endpoint.
	Status() Status
}

// EnvProvider reads Claude credentials from the gateway process's own
// environment and passes them through unmodified.
type EnvProvider struct{}

// NewEnvProvider returns the default credential provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

func (EnvProvider) Environment() map[string]string {
	env := map[string]string{}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		env["ANTHROPIC_API_KEY"] = v
	}
	if v := os.Getenv("CLAUDE_CODE_OAUTH_TOKEN"); v != "" {
		env["CLAUDE_CODE_OAUTH_TOKEN"] = v
	}
	return env
}

func (EnvProvider) Status() Status {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return Status{Configured: true, Source: "api_key"}
	}
	if os.Getenv("CLAUDE_CODE_OAUTH_TOKEN") != "" {
		return Status{Configured: true, Source: "oauth_token"}
	}
	return Status{Configured: false}
}

// ValidKey reports whether presented equals expected using a constant-time
// comparison, guarding against timing side channels on the gateway's own
// API_KEY check (§6).
func ValidKey(expected, presented string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
