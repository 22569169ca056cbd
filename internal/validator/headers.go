package validator

import (
	"strconv"
	"strings"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
)

// HeaderOverrides carries the custom X-Claude-* request headers that take
// precedence over body/default values when building claude.Options.
type HeaderOverrides struct {
	MaxTurns          *int
	PermissionMode    string
	MaxThinkingTokens *int
}

var validPermissionModes = map[string]bool{
	"default":           true,
	"acceptEdits":       true,
	"bypassPermissions": true,
}

// ParseHeaders reads the X-Claude-* headers via get (case-insensitive header
// lookup, e.g. fiber's c.Get). Header values override whatever the request
// body carries.
func ParseHeaders(get func(string) string) (HeaderOverrides, *apierror.Error) {
	var out HeaderOverrides
	var fields []FieldError

	if raw := strings.TrimSpace(get("X-Claude-Max-Turns")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, FieldError{Field: "X-Claude-Max-Turns", Kind: "value_out_of_range", Message: "must be a positive integer"})
		} else {
			out.MaxTurns = &n
		}
	}

	if raw := strings.TrimSpace(get("X-Claude-Permission-Mode")); raw != "" {
		if !validPermissionModes[raw] {
			fields = append(fields, FieldError{Field: "X-Claude-Permission-Mode", Kind: "enum_violation", Message: "must be one of default, acceptEdits, bypassPermissions"})
		} else {
			out.PermissionMode = raw
		}
	}

	if raw := strings.TrimSpace(get("X-Claude-Max-Thinking-Tokens")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields = append(fields, FieldError{Field: "X-Claude-Max-Thinking-Tokens", Kind: "value_out_of_range", Message: "must be a non-negative integer"})
		} else {
			out.MaxThinkingTokens = &n
		}
	}

	if len(fields) > 0 {
		return out, apierror.Validation(fields, "invalid X-Claude-* header")
	}
	return out, nil
}
