package claude

import (
	"encoding/json"
	"fmt"
)

// Field names below mirror the stream-json vocabulary shared by the
// Anthropic Messages streaming API and the installed Claude CLI
// (message_start/content_block_start/content_block_delta/content_block_stop/
// message_delta/message_stop, plus the CLI's own terminal "result" and
// "error" lines). This file is the ONLY place in the core that knows this
// vocabulary; everything downstream consumes Event.
type wireLine struct {
	Type    string       `json:"type"`
	Event   *wireEvent   `json:"event,omitempty"`
	Result  string       `json:"result,omitempty"`
	IsError bool         `json:"is_error,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   *wireErrInfo `json:"error,omitempty"`
}

type wireErrInfo struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type wireEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index"`
	ContentBlock *wireContentBlock `json:"content_block,omitempty"`
	Delta        *wireDelta        `json:"delta,omitempty"`
	Usage        *wireUsage        `json:"usage,omitempty"`
}

type wireContentBlock struct {
	Type string `json:"type"` // text | tool_use | thinking
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type wireDelta struct {
	Type        string `json:"type"` // text_delta | thinking_delta | input_json_delta
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// EventMapper decodes one newline-delimited JSON line at a time into zero
// or more normalized Events. It is stateful across lines within a single
// run (tracks which content-block index belongs to which tool-call id) and
// is NOT safe for concurrent use — one mapper per subprocess invocation.
type EventMapper struct {
	blockID  map[int]string
	blockTyp map[int]string
	ended    bool
}

// NewEventMapper creates a fresh mapper for one Claude CLI invocation.
func NewEventMapper() *EventMapper {
	return &EventMapper{
		blockID:  make(map[int]string),
		blockTyp: make(map[int]string),
	}
}

// Map decodes a single stdout line into the Events it represents. An
// unparseable line is a parse error the caller should treat as fatal
// (§4.2: the subprocess is killed on a parser error).
func (m *EventMapper) Map(line []byte) ([]Event, error) {
	var wl wireLine
	if err := json.Unmarshal(line, &wl); err != nil {
		return nil, fmt.Errorf("claude: malformed stream-json line: %w", err)
	}

	switch wl.Type {
	case "stream_event":
		return m.mapStreamEvent(wl.Event), nil
	case "result":
		return m.mapResult(wl), nil
	case "error":
		msg := wl.Message
		if wl.Error != nil && wl.Error.Message != "" {
			msg = wl.Error.Message
		}
		return []Event{ErrorEvent{Kind: "cli_error", Message: msg}}, nil
	default:
		// system/assistant/user snapshot lines carry no information the
		// stream_event deltas haven't already surfaced.
		return nil, nil
	}
}

func (m *EventMapper) mapStreamEvent(ev *wireEvent) []Event {
	if ev == nil {
		return nil
	}

	switch ev.Type {
	case "content_block_start":
		if ev.ContentBlock == nil {
			return nil
		}
		m.blockTyp[ev.Index] = ev.ContentBlock.Type
		if ev.ContentBlock.Type == "tool_use" {
			m.blockID[ev.Index] = ev.ContentBlock.ID
			return []Event{ToolUse{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name}}
		}
		return nil

	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return []Event{TextDelta{Text: ev.Delta.Text}}
		case "thinking_delta":
			return []Event{Thinking{Text: ev.Delta.Text}}
		case "input_json_delta":
			return []Event{ToolUse{ID: m.blockID[ev.Index], PartialArguments: ev.Delta.PartialJSON}}
		}
		return nil

	case "content_block_stop":
		delete(m.blockID, ev.Index)
		delete(m.blockTyp, ev.Index)
		return nil

	case "message_delta":
		var events []Event
		if ev.Usage != nil {
			events = append(events, Usage{PromptTokens: ev.Usage.InputTokens, CompletionTokens: ev.Usage.OutputTokens})
		}
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			m.ended = true
			events = append(events, End{Reason: mapStopReason(ev.Delta.StopReason)})
		}
		return events

	default: // message_start, message_stop
		return nil
	}
}

func (m *EventMapper) mapResult(wl wireLine) []Event {
	if wl.IsError {
		return []Event{ErrorEvent{Kind: "subprocess_failure", Message: wl.Result}}
	}

	if m.ended {
		// Partial-message stream already delivered content and End; the
		// result line is just the CLI's summary line.
		return nil
	}

	// No partial-message stream-events were seen (plain json mode): the
	// result carries the entire assistant turn in one shot.
	m.ended = true
	events := []Event{}
	if wl.Result != "" {
		events = append(events, TextDelta{Text: wl.Result})
	}
	events = append(events, End{Reason: FinishStop})
	return events
}

// mapStopReason translates the CLI/Anthropic stop_reason vocabulary into
// the gateway's closed FinishReason set.
func mapStopReason(reason string) FinishReason {
	switch reason {
	case "tool_use":
		return FinishToolCalls
	case "max_tokens":
		return FinishLength
	default:
		return FinishStop
	}
}
