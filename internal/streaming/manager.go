// Package streaming implements the per-connection SSE state machine for
// chat completion streams: chunk framing, heartbeats, disconnect
// detection, and the terminal [DONE] sentinel (§4.7).
package streaming

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/claude"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/observability"
)

// state is the per-stream lifecycle of §4.7: Idle -> HeaderSent ->
// Streaming -> Terminating -> Closed.
type state int

const (
	stateIdle state = iota
	stateHeaderSent
	stateStreaming
	stateTerminating
	stateClosed
)

const defaultHeartbeatInterval = 15 * time.Second

// Manager drives one SSE response. It implements service.EventSink so the
// Claude Service can feed it events directly without knowing it is
// streaming (§9 EventSink interface segregation). One Manager is created
// per HTTP request and is not reused.
type Manager struct {
	w                 *bufio.Writer
	cancel            context.CancelFunc
	heartbeatInterval time.Duration
	metrics           *observability.Metrics
	logger            *observability.Logger

	mu           sync.Mutex
	state        state
	id           string
	created      int64
	model        string
	lastWrite    time.Time
	disconnected bool

	toolIndex     map[string]int
	toolNameSent  map[string]bool
	nextToolIndex int

	done chan struct{}
}

// NewManager creates a Manager writing SSE frames to w. cancel is invoked
// the moment a write fails, propagating the disconnect to the underlying
// Claude Client invocation (§5 Cancellation). heartbeatInterval falls back
// to 15s (§4.7 default) when zero.
func NewManager(w *bufio.Writer, cancel context.CancelFunc, heartbeatInterval time.Duration, metrics *observability.Metrics, logger *observability.Logger) *Manager {
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	return &Manager{
		w:                 w,
		cancel:            cancel,
		heartbeatInterval: heartbeatInterval,
		metrics:           metrics,
		logger:            logger,
		toolIndex:         make(map[string]int),
		toolNameSent:      make(map[string]bool),
		done:              make(chan struct{}),
	}
}

// RunHeartbeat emits a ": heartbeat\n\n" comment whenever heartbeatInterval
// elapses without a real write, until the stream finishes or disconnects
// (its done channel closes). Run it in its own
// goroutine alongside the event-driven calls into the Manager.
func (m *Manager) RunHeartbeat() {
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.maybeHeartbeat()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) maybeHeartbeat() {
	m.mu.Lock()
	if m.state == stateClosed || m.disconnected {
		m.mu.Unlock()
		return
	}
	idle := time.Since(m.lastWrite)
	m.mu.Unlock()

	if idle < m.heartbeatInterval {
		return
	}
	if m.writeRaw(": heartbeat\n\n") && m.metrics != nil {
		m.metrics.StreamingHeartbeats.Inc()
	}
}

// Start sends the role-only opening chunk (§3 CompletionChunk: the first
// chunk's delta carries role:"assistant" with empty content).
func (m *Manager) Start(id string, created int64, model string) {
	m.mu.Lock()
	m.id, m.created, m.model = id, created, model
	m.state = stateHeaderSent
	m.mu.Unlock()

	m.writeChunk(models.CompletionChunk{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []models.ChunkChoice{{Index: 0, Delta: models.Delta{Role: "assistant"}}},
	})
}

// OnTextDelta emits one content chunk per §4.7.
func (m *Manager) OnTextDelta(text string) {
	if text == "" {
		return
	}
	m.setStreaming()
	m.writeChunk(m.chunk(models.Delta{Content: text}, ""))
}

// OnToolUse emits a tool_calls delta chunk. The id and function.name are
// only included on the first chunk for a given call id; every chunk
// (including the first) carries the incremental arguments text.
func (m *Manager) OnToolUse(id, name, partialArguments string) {
	m.setStreaming()

	m.mu.Lock()
	idx, seen := m.toolIndex[id]
	if !seen {
		idx = m.nextToolIndex
		m.nextToolIndex++
		m.toolIndex[id] = idx
	}
	firstName := !m.toolNameSent[id]
	if firstName {
		m.toolNameSent[id] = true
	}
	m.mu.Unlock()

	delta := models.ToolCallDelta{Index: idx, Function: &models.FunctionCallDelta{Arguments: partialArguments}}
	if firstName {
		delta.ID = id
		delta.Type = "function"
		delta.Function.Name = name
	}

	m.writeChunk(m.chunk(models.Delta{ToolCalls: []models.ToolCallDelta{delta}}, ""))
}

// OnUsage ignores usage: the gateway's CompletionChunk carries no usage
// field (§3), so this has no wire effect and exists only to satisfy
// EventSink.
func (m *Manager) OnUsage(promptTokens, completionTokens int) {}

// OnEnd emits the terminal chunk (empty delta, non-null finish_reason)
// followed by [DONE], and transitions to Closed.
func (m *Manager) OnEnd(reason claude.FinishReason) {
	m.mu.Lock()
	m.state = stateTerminating
	m.mu.Unlock()

	m.writeChunk(m.chunk(models.Delta{}, string(reason)))
	m.finish()
}

// OnError emits an SSE error event followed by [DONE] (§7 streaming_error).
func (m *Manager) OnError(err *apierror.Error) {
	m.mu.Lock()
	m.state = stateTerminating
	m.mu.Unlock()

	payload, _ := json.Marshal(err.Response())
	m.writeRaw(fmt.Sprintf("data: %s\n\n", payload))
	m.finish()
}

// Timeout emits a terminal chunk with finish_reason "length" if any
// content was already produced, otherwise an error event — per §4.7's
// per-request timeout behavior — then [DONE].
func (m *Manager) Timeout(producedContent bool) {
	if producedContent {
		m.OnEnd(claude.FinishLength)
		return
	}
	m.OnError(apierror.New(apierror.KindTimeout, "timeout", "request deadline exceeded"))
}

// Finalize is called once after the Claude Service has stopped feeding
// events, to settle any stream that hasn't already reached a terminal
// chunk/error/[DONE] on its own. A normal completion already closed via
// OnEnd/OnError, and a write failure already closed via Disconnect — both
// are no-ops here. The one case Finalize must still handle is a context
// deadline that fired with no stdout failure: nothing else observes that,
// so the stream would otherwise hang open with a half-written state.
func (m *Manager) Finalize(timedOut bool) {
	m.mu.Lock()
	closed := m.state == stateClosed
	producedContent := m.state == stateStreaming
	m.mu.Unlock()

	if closed {
		return
	}
	if timedOut {
		m.Timeout(producedContent)
		return
	}
	// Neither a terminal event nor a timeout: treat as a disconnect so the
	// stream is never left without closing its done channel.
	m.Disconnect()
}

// Disconnect marks the stream as disconnected: per §4.7's state-machine
// exception, [DONE] is never sent after a client disconnect. It cancels
// the underlying Claude Client invocation via the Manager's cancel func.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.disconnected {
		m.mu.Unlock()
		return
	}
	m.disconnected = true
	m.state = stateClosed
	m.mu.Unlock()

	m.cancel()
	m.closeDone()
}

func (m *Manager) finish() {
	m.writeRaw("data: [DONE]\n\n")
	m.mu.Lock()
	m.state = stateClosed
	m.mu.Unlock()
	m.closeDone()
}

func (m *Manager) closeDone() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

func (m *Manager) setStreaming() {
	m.mu.Lock()
	if m.state == stateHeaderSent {
		m.state = stateStreaming
	}
	m.mu.Unlock()
}

func (m *Manager) chunk(delta models.Delta, finishReason string) models.CompletionChunk {
	m.mu.Lock()
	id, created, model := m.id, m.created, m.model
	m.mu.Unlock()
	return models.CompletionChunk{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []models.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
}

func (m *Manager) writeChunk(chunk models.CompletionChunk) bool {
	data, err := json.Marshal(chunk)
	if err != nil {
		return false
	}
	return m.writeRaw(fmt.Sprintf("data: %s\n\n", data))
}

// writeRaw performs the actual write and flush, marking the stream
// disconnected (and cancelling the underlying invocation) on any error —
// this is the only place a write failure is observed (§5 Cancellation).
func (m *Manager) writeRaw(s string) bool {
	m.mu.Lock()
	if m.disconnected {
		m.mu.Unlock()
		return false
	}
	_, err := m.w.WriteString(s)
	if err == nil {
		err = m.w.Flush()
	}
	if err == nil {
		m.lastWrite = time.Now()
	}
	m.mu.Unlock()

	if err != nil {
		if m.logger != nil {
			m.logger.Warn("sse write failed, disconnecting stream", "error", err.Error())
		}
		m.Disconnect()
		return false
	}
	return true
}

var _ interface {
	Start(string, int64, string)
	OnTextDelta(string)
	OnToolUse(string, string, string)
	OnUsage(int, int)
	OnEnd(claude.FinishReason)
	OnError(*apierror.Error)
} = (*Manager)(nil)
