package translator

import (
	"strings"
	"testing"

	"github.com/claudex-gateway/claudex-gateway/internal/auth"
	"github.com/claudex-gateway/claudex-gateway/internal/claude"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

type fakeAuth struct{ env map[string]string }

func (f fakeAuth) Environment() map[string]string { return f.env }
func (f fakeAuth) Status() auth.Status            { return auth.Status{} }

func TestBuild_SystemMessagesConcatenated(t *testing.T) {
	req := &models.ChatRequest{
		Model: "claude-3-5-haiku-20241022",
		Messages: []models.Message{
			{Role: "system", Content: "be terse"},
			{Role: "system", Content: "never apologize"},
			{Role: "user", Content: "hi"},
		},
	}
	result := Build(req, nil, validator.HeaderOverrides{}, fakeAuth{}, "")
	if result.Options.SystemPrompt != "be terse\n\nnever apologize" {
		t.Errorf("system prompt = %q", result.Options.SystemPrompt)
	}
	if !strings.Contains(result.Prompt, "Human: hi") {
		t.Errorf("prompt = %q", result.Prompt)
	}
}

func TestBuild_PriorSessionMessagesPrepended(t *testing.T) {
	prior := []models.Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "first reply"},
	}
	req := &models.ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []models.Message{{Role: "user", Content: "second"}},
	}
	result := Build(req, prior, validator.HeaderOverrides{}, fakeAuth{}, "")

	firstIdx := strings.Index(result.Prompt, "Human: first")
	secondIdx := strings.Index(result.Prompt, "Human: second")
	if firstIdx == -1 || secondIdx == -1 || firstIdx > secondIdx {
		t.Errorf("expected prior turns before new turns, prompt = %q", result.Prompt)
	}
}

func TestBuild_DefaultsAndOverrides(t *testing.T) {
	req := &models.ChatRequest{Model: "m", Messages: []models.Message{{Role: "user", Content: "hi"}}}

	result := Build(req, nil, validator.HeaderOverrides{}, fakeAuth{}, "")
	if result.Options.MaxTurns != defaultMaxTurns {
		t.Errorf("MaxTurns = %d, want default %d", result.Options.MaxTurns, defaultMaxTurns)
	}
	if result.Options.PermissionMode != claude.PermissionDefault {
		t.Errorf("PermissionMode = %v, want default", result.Options.PermissionMode)
	}

	turns := 7
	thinking := 2048
	overrides := validator.HeaderOverrides{MaxTurns: &turns, PermissionMode: "bypassPermissions", MaxThinkingTokens: &thinking}
	result = Build(req, nil, overrides, fakeAuth{}, "")
	if result.Options.MaxTurns != 7 {
		t.Errorf("MaxTurns = %d, want 7", result.Options.MaxTurns)
	}
	if result.Options.PermissionMode != "bypassPermissions" {
		t.Errorf("PermissionMode = %v, want bypassPermissions", result.Options.PermissionMode)
	}
	if result.Options.MaxThinkingTokens != 2048 {
		t.Errorf("MaxThinkingTokens = %d, want 2048", result.Options.MaxThinkingTokens)
	}
}

func TestBuild_NeverSetsResumeSessionID(t *testing.T) {
	req := &models.ChatRequest{Model: "m", Messages: []models.Message{{Role: "user", Content: "hi"}}, SessionID: "sess-123"}
	result := Build(req, nil, validator.HeaderOverrides{}, fakeAuth{}, "")
	if result.Options.ResumeSessionID != "" {
		t.Errorf("ResumeSessionID = %q, want empty: session continuity is via transcript re-prepending", result.Options.ResumeSessionID)
	}
}

func TestBuild_ToolResultRendered(t *testing.T) {
	req := &models.ChatRequest{
		Model: "m",
		Messages: []models.Message{
			{Role: "user", Content: "what's the weather"},
			{Role: "assistant", ToolCalls: []models.ToolCall{{ID: "call_1", Type: "function", Function: models.FunctionCall{Name: "get_weather", Arguments: `{"city":"nyc"}`}}}},
			{Role: "tool", ToolCallID: "call_1", Content: "72F sunny"},
		},
	}
	result := Build(req, nil, validator.HeaderOverrides{}, fakeAuth{}, "")
	if !strings.Contains(result.Prompt, "get_weather") || !strings.Contains(result.Prompt, "72F sunny") {
		t.Errorf("prompt = %q", result.Prompt)
	}
}

func TestBuild_EnvOverridesFromAuthProvider(t *testing.T) {
	req := &models.ChatRequest{Model: "m", Messages: []models.Message{{Role: "user", Content: "hi"}}}
	result := Build(req, nil, validator.HeaderOverrides{}, fakeAuth{env: map[string]string{"ANTHROPIC_API_KEY": "sk-x"}}, "")
	if result.Options.EnvOverrides["ANTHROPIC_API_KEY"] != "sk-x" {
		t.Errorf("EnvOverrides = %+v", result.Options.EnvOverrides)
	}
}
