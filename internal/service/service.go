// Package service orchestrates one completion end to end: it fetches the
// session (if any), builds the prompt, drives the Claude Client, and
// accumulates the resulting events into an OpenAI response — or, for a
// streaming request, forwards them to an EventSink — before appending the
// new turn to the session.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/claudex-gateway/claudex-gateway/internal/apierror"
	"github.com/claudex-gateway/claudex-gateway/internal/auth"
	"github.com/claudex-gateway/claudex-gateway/internal/claude"
	"github.com/claudex-gateway/claudex-gateway/internal/models"
	"github.com/claudex-gateway/claudex-gateway/internal/observability"
	"github.com/claudex-gateway/claudex-gateway/internal/session"
	"github.com/claudex-gateway/claudex-gateway/internal/translator"
	"github.com/claudex-gateway/claudex-gateway/internal/validator"
)

// EventSink receives the normalized event stream of one completion as it is
// produced. Start is called exactly once before any other method, with the
// id/created/model every subsequent chunk must share (§3 CompletionChunk).
// The non-streaming path uses an internal accumulator that implements this
// same interface so the Service never branches on streaming-vs-not while
// consuming claude.Events — this is the cyclic-reference break of §9
// (service depends on the interface, not on the Streaming Manager).
type EventSink interface {
	Start(id string, created int64, model string)
	OnTextDelta(text string)
	OnToolUse(id, name, partialArguments string)
	OnUsage(promptTokens, completionTokens int)
	OnEnd(reason claude.FinishReason)
	OnError(err *apierror.Error)
}

// ClaudeClient is the narrow surface Service needs from claude.Client,
// satisfied by *claude.Client and substitutable with a fake in tests.
type ClaudeClient interface {
	Run(ctx context.Context, prompt string, opts claude.Options) (<-chan claude.Event, error)
}

// Service is the request orchestrator (§4.6).
type Service struct {
	sessions     *session.Store
	client       ClaudeClient
	authProvider auth.Provider
	cwd          string
	maxTimeout   time.Duration
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// New builds a Service. cwd is the working directory handed to every Claude
// CLI invocation; maxTimeout is the configured MAX_TIMEOUT ceiling (§4.5).
func New(sessions *session.Store, client ClaudeClient, authProvider auth.Provider, cwd string, maxTimeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		sessions:     sessions,
		client:       client,
		authProvider: authProvider,
		cwd:          cwd,
		maxTimeout:   maxTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

// GenerateID returns a fresh "chatcmpl-" + 8 hex char completion id.
func GenerateID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return "chatcmpl-" + hex.EncodeToString(b[:])
}

// Complete runs one non-streaming completion and returns the accumulated
// OpenAI response.
func (s *Service) Complete(ctx context.Context, req *models.ChatRequest, overrides validator.HeaderOverrides) (*models.CompletionResponse, *apierror.Error) {
	acc := newAccumulator()
	id := GenerateID()
	created := time.Now().Unix()
	acc.Start(id, created, req.Model)

	if err := s.run(ctx, req, overrides, acc); err != nil {
		return nil, err
	}

	resp := acc.response()
	s.appendSession(req, resp.Choices[0].Message)
	return resp, nil
}

// Stream runs one streaming completion, forwarding every event to sink,
// and appends the completed turn to the session once finished — unless ctx
// was cancelled (client disconnect or timeout-by-cancellation), in which
// case the partial assistant turn is never persisted (§4.7, §5).
func (s *Service) Stream(ctx context.Context, req *models.ChatRequest, overrides validator.HeaderOverrides, sink EventSink) {
	acc := newAccumulator()
	id := GenerateID()
	created := time.Now().Unix()

	sink.Start(id, created, req.Model)
	acc.Start(id, created, req.Model)

	tee := teeSink{a: sink, b: acc}
	err := s.run(ctx, req, overrides, tee)

	if ctx.Err() != nil {
		// Disconnected or cancelled: skip the session append entirely,
		// the sink has already been torn down by its caller.
		return
	}
	if err != nil {
		return
	}

	resp := acc.response()
	s.appendSession(req, resp.Choices[0].Message)
}

// run fetches session context, builds the prompt, drives the Claude
// Client, and feeds every event to sink. It does not itself decide
// whether to append to the session — that is the caller's job, since only
// the caller knows whether it was cancelled mid-stream.
func (s *Service) run(ctx context.Context, req *models.ChatRequest, overrides validator.HeaderOverrides, sink EventSink) *apierror.Error {
	var prior []models.Message
	if req.SessionID != "" {
		s.sessions.GetOrCreate(req.SessionID)
		snap, err := s.sessions.Snapshot(req.SessionID)
		if err == nil {
			prior = snap
		}
	}

	built := translator.Build(req, prior, overrides, s.authProvider, s.cwd)
	built.Options.TimeoutMS = s.timeoutMS(ctx)

	events, err := s.client.Run(ctx, built.Prompt, built.Options)
	if err != nil {
		apiErr := apierror.New(apierror.KindClaudeUnavail, "claude_unavailable", err.Error())
		sink.OnError(apiErr)
		return apiErr
	}

	for ev := range events {
		switch v := ev.(type) {
		case claude.TextDelta:
			sink.OnTextDelta(v.Text)
		case claude.ToolUse:
			sink.OnToolUse(v.ID, v.Name, v.PartialArguments)
		case claude.Thinking:
			// never forwarded to clients (§3 ClaudeEvent.Thinking)
		case claude.Usage:
			sink.OnUsage(v.PromptTokens, v.CompletionTokens)
		case claude.End:
			sink.OnEnd(v.Reason)
		case claude.ErrorEvent:
			apiErr := apierror.New(apierror.KindClaudeError, v.Kind, v.Message)
			sink.OnError(apiErr)
			return apiErr
		}
	}
	return nil
}

// timeoutMS caps the configured MAX_TIMEOUT to whatever remains on ctx's
// own deadline, per §4.5.
func (s *Service) timeoutMS(ctx context.Context) int {
	timeout := s.maxTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0
	}
	return int(timeout.Milliseconds())
}

// appendSession appends the user-visible user message(s) and the
// synthesized assistant message to the session in one call, so the log is
// atomic from readers' perspective (§4.6 step 5).
func (s *Service) appendSession(req *models.ChatRequest, assistant models.Message) {
	if req.SessionID == "" {
		return
	}
	toAppend := append(append([]models.Message{}, req.Messages...), assistant)
	if err := s.sessions.Append(req.SessionID, toAppend); err != nil {
		s.logger.Warn("session append failed", "session_id", req.SessionID, "error", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.SessionMessages.Add(float64(len(toAppend)))
		s.metrics.SessionsActive.Set(float64(len(s.sessions.List())))
	}
}

// teeSink forwards every call to both a (a client-facing sink, e.g. the
// Streaming Manager) and b (the internal accumulator building the message
// that will be appended to the session).
type teeSink struct {
	a EventSink
	b EventSink
}

func (t teeSink) Start(id string, created int64, model string) {
	t.a.Start(id, created, model)
	t.b.Start(id, created, model)
}
func (t teeSink) OnTextDelta(text string) {
	t.a.OnTextDelta(text)
	t.b.OnTextDelta(text)
}
func (t teeSink) OnToolUse(id, name, partialArguments string) {
	t.a.OnToolUse(id, name, partialArguments)
	t.b.OnToolUse(id, name, partialArguments)
}
func (t teeSink) OnUsage(promptTokens, completionTokens int) {
	t.a.OnUsage(promptTokens, completionTokens)
	t.b.OnUsage(promptTokens, completionTokens)
}
func (t teeSink) OnEnd(reason claude.FinishReason) {
	t.a.OnEnd(reason)
	t.b.OnEnd(reason)
}
func (t teeSink) OnError(err *apierror.Error) {
	t.a.OnError(err)
	t.b.OnError(err)
}

var _ EventSink = teeSink{}
