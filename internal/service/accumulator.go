package service

import (
	"strings"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/claude"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
)

// accumulator implements EventSink by building a single CompletionResponse
// out of the event stream — the non-streaming path, and also the
// session-append half of the streaming path (via teeSink).
type accumulator struct {
	id      string
	created int64
	model   string

	content strings.Builder

	toolOrder []string
	toolCalls map[string]*models.ToolCall

	usage  models.Usage
	finish string
}

func newAccumulator() *accumulator {
	return &accumulator{toolCalls: make(map[string]*models.ToolCall)}
}

func (a *accumulator) Start(id string, created int64, model string) {
	a.id, a.created, a.model = id, created, model
}

func (a *accumulator) OnTextDelta(text string) {
	a.content.WriteString(text)
}

func (a *accumulator) OnToolUse(id, name, partialArguments string) {
	tc, ok := a.toolCalls[id]
	if !ok {
		tc = &models.ToolCall{ID: id, Type: "function", Function: models.FunctionCall{Name: name}}
		a.toolCalls[id] = tc
		a.toolOrder = append(a.toolOrder, id)
	} else if name != "" && tc.Function.Name == "" {
		tc.Function.Name = name
	}
	tc.Function.Arguments += partialArguments
}

func (a *accumulator) OnUsage(promptTokens, completionTokens int) {
	a.usage = models.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

func (a *accumulator) OnEnd(reason claude.FinishReason) {
	a.finish = string(reason)
}

func (a *accumulator) OnError(err *apierror.Error) {
	a.finish = "error"
}

// message renders the assistant turn accumulated so far as an OpenAI
// Message: tool_calls with nil content (§3 Message invariant), or plain
// text content otherwise.
func (a *accumulator) message() models.Message {
	if len(a.toolOrder) > 0 {
		calls := make([]models.ToolCall, 0, len(a.toolOrder))
		for _, id := range a.toolOrder {
			calls = append(calls, *a.toolCalls[id])
		}
		return models.Message{Role: "assistant", Content: nil, ToolCalls: calls}
	}
	return models.Message{Role: "assistant", Content: a.content.String()}
}

// response builds the final CompletionResponse. Callers use it once the
// event stream has closed without an error event; finish_reason falls back
// to "stop" when no End was observed.
func (a *accumulator) response() *models.CompletionResponse {
	finish := a.finish
	if finish == "" {
		finish = "stop"
	}
	return &models.CompletionResponse{
		ID:      a.id,
		Object:  "chat.completion",
		Created: a.created,
		Model:   a.model,
		Choices: []models.Choice{{
			Index:        0,
			Message:      a.message(),
			FinishReason: finish,
		}},
		Usage: a.usage,
	}
}

var _ EventSink = (*accumulator)(nil)
