// Package translator turns a validated chat request, a session's prior
// turns, and header overrides into the prompt text and claude.Options a
// single Claude CLI invocation needs.
package translator

import (
	"fmt"
	"strings"

	"github.com/claudex-gateway/claudex-gateway/internal/auth"
	"github.com/claudex-gateway/claudex-gateway/internal/claude"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

const defaultMaxTurns = 2

// Result is what one completion invocation needs: the prompt text to feed
// the CLI on stdin and the Options to invoke it with.
type Result struct {
	Prompt  string
	Options claude.Options
}

// Build renders req plus any prior session turns into a Result. prior holds
// the session's message log before this request's new messages (nil for a
// sessionless request); it is re-prepended into the prompt text rather than
// invoking the CLI's --resume flag, because the gateway's session store is
// in-memory only and has no on-disk transcript for --resume to attach to.
func Build(req *models.ChatRequest, prior []models.Message, overrides validator.HeaderOverrides, authProvider auth.Provider, cwd string) Result {
	allMessages := append(append([]models.Message{}, prior...), req.Messages...)

	systemPrompt, turns := splitSystemPrompt(allMessages)
	prompt := renderPrompt(turns)

	maxTurns := defaultMaxTurns
	if overrides.MaxTurns != nil {
		maxTurns = *overrides.MaxTurns
	}

	permissionMode := claude.PermissionDefault
	if overrides.PermissionMode != "" {
		permissionMode = claude.PermissionMode(overrides.PermissionMode)
	}

	maxThinkingTokens := 0
	if overrides.MaxThinkingTokens != nil {
		maxThinkingTokens = *overrides.MaxThinkingTokens
	}

	return Result{
		Prompt: prompt,
		Options: claude.Options{
			Model:             req.Model,
			SystemPrompt:      systemPrompt,
			MaxTurns:          maxTurns,
			Tools:             req.Tools,
			ToolChoice:        req.ToolChoice,
			PermissionMode:    permissionMode,
			MaxThinkingTokens: maxThinkingTokens,
			CWD:               cwd,
			EnvOverrides:      authProvider.Environment(),
		},
	}
}

// splitSystemPrompt concatenates every leading system message (in order,
// joined with a blank line) into a single system prompt and returns the
// remaining conversation turns.
func splitSystemPrompt(messages []models.Message) (string, []models.Message) {
	var system []string
	i := 0
	for ; i < len(messages); i++ {
		if messages[i].Role != "system" {
			break
		}
		system = append(system, messages[i].TextContent())
	}
	return strings.Join(system, "\n\n"), messages[i:]
}

// renderPrompt flattens the non-system turns into the single text blob the
// CLI receives on stdin, rendering tool results and assistant tool calls
// with enough structure for the model to track them across turns.
func renderPrompt(turns []models.Message) string {
	var b strings.Builder
	for _, m := range turns {
		switch m.Role {
		case "user":
			fmt.Fprintf(&b, "Human: %s\n\n", m.TextContent())
		case "assistant":
			if len(m.ToolCalls) > 0 {
				for _, tc := range m.ToolCalls {
					fmt.Fprintf(&b, "Assistant: [called %s(%s)]\n\n", tc.Function.Name, tc.Function.Arguments)
				}
			} else {
				fmt.Fprintf(&b, "Assistant: %s\n\n", m.TextContent())
			}
		case "tool":
			fmt.Fprintf(&b, "Tool result (%s): %s\n\n", m.ToolCallID, m.TextContent())
		}
	}
	return b.String()
}
