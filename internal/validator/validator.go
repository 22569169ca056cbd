// Package validator validates OpenAI chat request shape and produces a
// machine-readable compatibility report describing which parameters the
// gateway honors, ignores, or warns about.
package validator

import (
	"fmt"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
)

// AllowedModels is the built-in set of Claude model identifiers the gateway
// accepts (§6). ExtendAllowlist can add to it at startup; nothing else
// changes it.
var AllowedModels = map[string]bool{
	"claude-sonnet-4-20250514":   true,
	"claude-opus-4-20250514":     true,
	"claude-3-7-sonnet-20250219": true,
	"claude-3-5-sonnet-20241022": true,
	"claude-3-5-haiku-20241022":  true,
}

// ExtendAllowlist adds extra model identifiers to AllowedModels — the
// home for an operator's optional claudex.yaml model-allowlist override
// (config.LoadModelOverrides). Call once at startup, before serving.
func ExtendAllowlist(ids []string) {
	for _, id := range ids {
		if id != "" {
			AllowedModels[id] = true
		}
	}
}

// unsupportedParams is the closed set of OpenAI sampling parameters the
// Claude CLI does not honor; they are accepted, reported, and discarded.
var unsupportedParams = []string{
	"temperature", "top_p", "n", "max_tokens", "stop",
	"presence_penalty", "frequency_penalty", "logit_bias",
}

// FieldError describes one request-shape violation.
type FieldError struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"` // missing | type_mismatch | value_out_of_range | enum_violation
	Message string `json:"message"`
}

// Report is the per-request compatibility report surfaced verbatim from
// /v1/compatibility and /v1/debug/request.
type Report struct {
	SupportedParameters   []string `json:"supported_parameters"`
	UnsupportedParameters []string `json:"unsupported_parameters"`
	Warnings              []string `json:"warnings"`
	Suggestions           []string `json:"suggestions"`
}

// Validate checks req's shape and values, returning a compatibility report
// for every request (even one that fails validation is worth reporting on,
// callers check the returned error before relying on the report) and a
// *apierror.Error when req must be rejected.
func Validate(req *models.ChatRequest) (*Report, *apierror.Error) {
	var fields []FieldError

	if req.Model == "" {
		fields = append(fields, FieldError{Field: "model", Kind: "missing", Message: "model is required"})
	} else if !AllowedModels[req.Model] {
		fields = append(fields, FieldError{Field: "model", Kind: "enum_violation", Message: fmt.Sprintf("unknown model %q", req.Model)})
	}

	if len(req.Messages) == 0 {
		fields = append(fields, FieldError{Field: "messages", Kind: "missing", Message: "messages must be a non-empty array"})
	}

	for i, m := range req.Messages {
		fields = append(fields, validateMessage(i, m)...)
	}

	if req.N != nil && *req.N != 1 {
		fields = append(fields, FieldError{Field: "n", Kind: "value_out_of_range", Message: "n must equal 1 if present"})
	}

	if req.ToolChoice != nil {
		fields = append(fields, validateToolChoice(req.ToolChoice)...)
	}

	report := buildReport(req)

	if len(fields) > 0 {
		return report, apierror.Validation(fields, "request failed validation")
	}
	return report, nil
}

func validateMessage(i int, m models.Message) []FieldError {
	var errs []FieldError
	prefix := fmt.Sprintf("messages[%d]", i)

	switch m.Role {
	case "system", "user", "assistant", "tool":
	case "":
		errs = append(errs, FieldError{Field: prefix + ".role", Kind: "missing", Message: "role is required"})
	default:
		errs = append(errs, FieldError{Field: prefix + ".role", Kind: "enum_violation", Message: fmt.Sprintf("unknown role %q", m.Role)})
	}

	if m.Role == "tool" && m.ToolCallID == "" {
		errs = append(errs, FieldError{Field: prefix + ".tool_call_id", Kind: "missing", Message: "tool messages require tool_call_id"})
	}

	if m.Role == "assistant" && len(m.ToolCalls) > 0 && m.Content != nil {
		errs = append(errs, FieldError{Field: prefix + ".content", Kind: "value_out_of_range", Message: "assistant messages with tool_calls must have null content"})
	}

	return errs
}

func validateToolChoice(tc any) []FieldError {
	switch v := tc.(type) {
	case string:
		if v != "auto" && v != "none" {
			return []FieldError{{Field: "tool_choice", Kind: "enum_violation", Message: fmt.Sprintf("unknown tool_choice %q", v)}}
		}
	case map[string]any:
		if _, ok := v["function"]; !ok {
			return []FieldError{{Field: "tool_choice", Kind: "type_mismatch", Message: "object tool_choice requires a function field"}}
		}
	default:
		return []FieldError{{Field: "tool_choice", Kind: "type_mismatch", Message: "tool_choice must be a string or {function:{name}}"}}
	}
	return nil
}

// buildReport computes the compatibility report for req: invariant (§8.5)
// unsupported_parameters is exactly the intersection of provided fields
// with the closed unsupported set.
func buildReport(req *models.ChatRequest) *Report {
	provided := map[string]bool{
		"temperature":       req.Temperature != nil,
		"top_p":             req.TopP != nil,
		"n":                 req.N != nil,
		"max_tokens":        req.MaxTokens != nil,
		"stop":              req.Stop != nil,
		"presence_penalty":  req.PresencePenalty != nil,
		"frequency_penalty": req.FrequencyPenalty != nil,
		"logit_bias":        req.LogitBias != nil,
	}

	var unsupported []string
	for _, p := range unsupportedParams {
		if provided[p] {
			unsupported = append(unsupported, p)
		}
	}

	supported := []string{"model", "messages", "stream", "session_id", "tools", "tool_choice", "user"}

	var warnings, suggestions []string
	if len(unsupported) > 0 {
		warnings = append(warnings, "one or more sampling parameters are accepted but ignored by the Claude CLI backend")
		suggestions = append(suggestions, "remove unsupported sampling parameters from the request; they have no effect")
	}

	return &Report{
		SupportedParameters:   supported,
		UnsupportedParameters: unsupported,
		Warnings:              warnings,
		Suggestions:           suggestions,
	}
}
