package claude

import "testing"

func mapLines(t *testing.T, lines []string) []Event {
	t.Helper()
	m := NewEventMapper()
	var all []Event
	for _, line := range lines {
		events, err := m.Map([]byte(line))
		if err != nil {
			t.Fatalf("Map(%q): %v", line, err)
		}
		all = append(all, events...)
	}
	return all
}

func TestEventMapper_TextDeltaStream(t *testing.T) {
	lines := []string{
		`{"type":"stream_event","event":{"type":"message_start"}}`,
		`{"type":"stream_event","event":{"type":"content_block_start","index":0,"content_block":{"type":"text"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"he"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"llo"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_stop","index":0}}`,
		`{"type":"stream_event","event":{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"input_tokens":2,"output_tokens":1}}}`,
		`{"type":"stream_event","event":{"type":"message_stop"}}`,
		`{"type":"result","result":"hello","is_error":false}`,
	}

	events := mapLines(t, lines)

	var texts string
	var sawUsage, sawEnd bool
	for _, e := range events {
		switch v := e.(type) {
		case TextDelta:
			texts += v.Text
		case Usage:
			sawUsage = true
			if v.PromptTokens != 2 || v.CompletionTokens != 1 {
				t.Errorf("usage = %+v", v)
			}
		case End:
			sawEnd = true
			if v.Reason != FinishStop {
				t.Errorf("finish reason = %v, want stop", v.Reason)
			}
		}
	}

	if texts != "hello" {
		t.Errorf("accumulated text = %q, want hello", texts)
	}
	if !sawUsage || !sawEnd {
		t.Errorf("sawUsage=%v sawEnd=%v", sawUsage, sawEnd)
	}
}

func TestEventMapper_ToolUseAccumulates(t *testing.T) {
	lines := []string{
		`{"type":"stream_event","event":{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"c1","name":"read_file"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"p"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"ath\":\"/f\"}"}}}`,
		`{"type":"stream_event","event":{"type":"message_delta","delta":{"stop_reason":"tool_use"}}}`,
	}

	events := mapLines(t, lines)

	var id, name, args string
	var finish FinishReason
	for _, e := range events {
		switch v := e.(type) {
		case ToolUse:
			if v.Name != "" {
				name = v.Name
				id = v.ID
			}
			args += v.PartialArguments
		case End:
			finish = v.Reason
		}
	}

	if id != "c1" || name != "read_file" {
		t.Errorf("id=%q name=%q", id, name)
	}
	if args != `{"path":"/f"}` {
		t.Errorf("args = %q", args)
	}
	if finish != FinishToolCalls {
		t.Errorf("finish = %v, want tool_calls", finish)
	}
}

func TestEventMapper_PlainResultNoStreamEvents(t *testing.T) {
	events := mapLines(t, []string{`{"type":"result","result":"pong","is_error":false}`})

	if len(events) != 2 {
		t.Fatalf("events = %+v, want 2", events)
	}
	td, ok := events[0].(TextDelta)
	if !ok || td.Text != "pong" {
		t.Errorf("events[0] = %+v", events[0])
	}
	end, ok := events[1].(End)
	if !ok || end.Reason != FinishStop {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestEventMapper_ErrorResult(t *testing.T) {
	events := mapLines(t, []string{`{"type":"result","result":"boom","is_error":true}`})

	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	errEvt, ok := events[0].(ErrorEvent)
	if !ok || errEvt.Message != "boom" {
		t.Errorf("events[0] = %+v", events[0])
	}
}

func TestEventMapper_MalformedLine(t *testing.T) {
	m := NewEventMapper()
	if _, err := m.Map([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
