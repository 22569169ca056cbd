package validator

import (
	"testing"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
)

func TestValidate_MissingModelAndMessages(t *testing.T) {
	req := &models.ChatRequest{}
	_, apiErr := Validate(req)
	if apiErr == nil {
		t.Fatal("expected validation error")
	}
	if apiErr.Kind != apierror.KindValidation {
		t.Errorf("kind = %v, want validation_error", apiErr.Kind)
	}

	fields, ok := apiErr.Details.([]FieldError)
	if !ok {
		t.Fatalf("details = %T, want []FieldError", apiErr.Details)
	}

	var sawModel, sawMessages bool
	for _, f := range fields {
		if f.Field == "model" && f.Kind == "missing" {
			sawModel = true
		}
		if f.Field == "messages" && f.Kind == "missing" {
			sawMessages = true
		}
	}
	if !sawModel || !sawMessages {
		t.Errorf("fields = %+v, want both model and messages missing", fields)
	}
}

func TestValidate_NGreaterThanOneRejected(t *testing.T) {
	n := 2
	req := &models.ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []models.Message{{Role: "user", Content: "hi"}},
		N:        &n,
	}
	_, apiErr := Validate(req)
	if apiErr == nil {
		t.Fatal("expected validation error for n > 1")
	}
}

func TestValidate_ValidRequestPasses(t *testing.T) {
	req := &models.ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []models.Message{{Role: "user", Content: "hi"}},
	}
	report, apiErr := Validate(req)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if len(report.UnsupportedParameters) != 0 {
		t.Errorf("unsupported = %v, want none", report.UnsupportedParameters)
	}
}

func TestValidate_UnsupportedParametersReportedAsIntersection(t *testing.T) {
	temp := 0.7
	maxTok := 100
	req := &models.ChatRequest{
		Model:       "claude-3-5-haiku-20241022",
		Messages:    []models.Message{{Role: "user", Content: "hi"}},
		Temperature: &temp,
		MaxTokens:   &maxTok,
	}
	report, apiErr := Validate(req)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if len(report.UnsupportedParameters) != 2 {
		t.Fatalf("unsupported = %v, want exactly [temperature max_tokens]", report.UnsupportedParameters)
	}
	seen := map[string]bool{}
	for _, p := range report.UnsupportedParameters {
		seen[p] = true
	}
	if !seen["temperature"] || !seen["max_tokens"] {
		t.Errorf("unsupported = %v", report.UnsupportedParameters)
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning when unsupported parameters are present")
	}
}

func TestValidate_ToolMessageRequiresToolCallID(t *testing.T) {
	req := &models.ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []models.Message{{Role: "tool", Content: "result"}},
	}
	_, apiErr := Validate(req)
	if apiErr == nil {
		t.Fatal("expected validation error for tool message without tool_call_id")
	}
}

func TestValidate_UnknownModelIsEnumViolation(t *testing.T) {
	req := &models.ChatRequest{
		Model:    "gpt-4",
		Messages: []models.Message{{Role: "user", Content: "hi"}},
	}
	_, apiErr := Validate(req)
	if apiErr == nil {
		t.Fatal("expected validation error for unknown model")
	}
	fields := apiErr.Details.([]FieldError)
	if len(fields) != 1 || fields[0].Kind != "enum_violation" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestParseHeaders_OverridesParsed(t *testing.T) {
	values := map[string]string{
		"X-Claude-Max-Turns":            "5",
		"X-Claude-Permission-Mode":      "acceptEdits",
		"X-Claude-Max-Thinking-Tokens":  "1024",
	}
	overrides, apiErr := ParseHeaders(func(k string) string { return values[k] })
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if overrides.MaxTurns == nil || *overrides.MaxTurns != 5 {
		t.Errorf("MaxTurns = %v", overrides.MaxTurns)
	}
	if overrides.PermissionMode != "acceptEdits" {
		t.Errorf("PermissionMode = %v", overrides.PermissionMode)
	}
	if overrides.MaxThinkingTokens == nil || *overrides.MaxThinkingTokens != 1024 {
		t.Errorf("MaxThinkingTokens = %v", overrides.MaxThinkingTokens)
	}
}

func TestParseHeaders_InvalidPermissionModeRejected(t *testing.T) {
	values := map[string]string{"X-Claude-Permission-Mode": "yolo"}
	_, apiErr := ParseHeaders(func(k string) string { return values[k] })
	if apiErr == nil {
		t.Fatal("expected error for invalid permission mode")
	}
}

func TestParseHeaders_AbsentHeadersYieldZeroValue(t *testing.T) {
	overrides, apiErr := ParseHeaders(func(string) string { return "" })
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if overrides.MaxTurns != nil || overrides.PermissionMode != "" || overrides.MaxThinkingTokens != nil {
		t.Errorf("expected zero-value overrides, got %+v", overrides)
	}
}
