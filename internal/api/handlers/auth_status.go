package handlers

import "github.com/gofiber/fiber/v2"

// authEnvironmentVariables lists the variable names the auth collaborator
// consults, never their values (§4.8: introspection, not credential
// exposure).
var authEnvironmentVariables = []string{"ANTHROPIC_API_KEY", "CLAUDE_CODE_OAUTH_TOKEN"}

// AuthStatus handles GET /v1/auth/status (§4.8).
func (h *Handlers) AuthStatus(c *fiber.Ctx) error {
	status := h.Auth.Status()

	method := status.Source
	if method == "" {
		method = "none"
	}
	state := "not_configured"
	if status.Configured {
		state = "configured"
	}

	apiKeySource := "none"
	if h.APIKeyRequired {
		apiKeySource = "api_key_env"
	}

	return c.JSON(fiber.Map{
		"claude_code_auth": fiber.Map{
			"method":                method,
			"status":                state,
			"environment_variables": authEnvironmentVariables,
		},
		"server_info": fiber.Map{
			"api_key_required": h.APIKeyRequired,
			"api_key_source":   apiKeySource,
			"version":          h.Version,
		},
	})
}
