package turns

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Turn drives a single model exchange: it opens one streaming generation
// call, classifies every chunk into typed events, and accumulates the tool
// calls the model requested. A Turn is single-use; construct a fresh one per
// exchange and call Run exactly once.
type Turn struct {
	generator generation.ContentGenerator
	sessionID string
	turnID    string
	model     string

	// PendingToolCalls collects the model's tool requests in arrival order.
	// The scheduler consumes them after Run returns.
	PendingToolCalls []events.ToolCallRequest

	debugResponses []*generation.Response
	lastFinish     generation.FinishReason
	lastUsage      *generation.UsageMetadata
}

// NewTurn builds a Turn bound to a session and a turn identifier. The
// identifiers are stamped onto every event the turn emits.
func NewTurn(generator generation.ContentGenerator, sessionID, turnID string) *Turn {
	return &Turn{
		generator: generator,
		sessionID: sessionID,
		turnID:    turnID,
	}
}

// TurnID returns the identifier stamped onto this turn's events.
func (t *Turn) TurnID() string {
	return t.turnID
}

// DebugResponses returns every chunk the turn fully processed, in stream
// order. Chunks abandoned by cancellation are absent.
func (t *Turn) DebugResponses() []*generation.Response {
	return t.debugResponses
}

// Usage returns the last usage metadata the stream reported, or nil.
func (t *Turn) Usage() *generation.UsageMetadata {
	return t.lastUsage
}

// Run opens the stream for req and emits one typed event per classified
// chunk. It returns nil for every outcome the conversation can absorb:
// normal completion (EventFinished), user cancellation (EventUserCancelled)
// and provider failures (EventError plus a best-effort diagnostic report).
// Only authentication failures are returned as errors, without any event,
// so the caller can run a re-auth flow.
func (t *Turn) Run(ctx context.Context, req *generation.Request, emit func(events.Event)) error {
	t.model = req.Model

	stream, err := t.generator.GenerateContentStream(ctx, req)
	if err != nil {
		return t.fail(ctx, req, emit, err)
	}
	defer func() { _ = stream.Close() }()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t.fail(ctx, req, emit, err)
		}
		// A signal raised while this chunk was in flight abandons it:
		// nothing is emitted for it and it is not recorded.
		if ctx.Err() != nil {
			emit(events.NewUserCancelledEvent(t.metadata()))
			return nil
		}

		t.debugResponses = append(t.debugResponses, resp)
		t.processChunk(resp, emit)
	}

	meta := t.metadata()
	meta.Usage = t.lastUsage
	emit(events.NewFinishedEvent(meta, t.lastFinish))
	return nil
}

// processChunk classifies one chunk. Thought chunks short-circuit: a chunk
// whose first part is marked as reasoning produces only an EventThought.
func (t *Turn) processChunk(resp *generation.Response, emit func(events.Event)) {
	if resp.UsageMetadata != nil {
		t.lastUsage = resp.UsageMetadata
	}
	if reason := resp.FinishReason(); reason != generation.FinishReasonUnspecified {
		t.lastFinish = reason
	}

	if part, ok := firstPart(resp); ok && part.Thought {
		subject, description := ParseThought(part.Text)
		emit(events.NewThoughtEvent(t.metadata(), subject, description))
		return
	}

	if text := resp.Text(); text != "" {
		emit(events.NewContentEvent(t.metadata(), text))
	}

	for _, fc := range resp.FunctionCalls() {
		request := t.pendingCall(fc)
		t.PendingToolCalls = append(t.PendingToolCalls, request)
		emit(events.NewToolCallRequestEvent(t.metadata(), request))
	}
}

// pendingCall normalizes a provider function call into a ToolCallRequest:
// the name falls back to the undefined-tool sentinel, args are never nil,
// and a synthetic call id is derived when the provider did not assign one.
func (t *Turn) pendingCall(fc generation.FunctionCall) events.ToolCallRequest {
	name := fc.Name
	if name == "" {
		name = events.UndefinedToolName
	}

	callID := fc.ID
	if callID == "" {
		callID = fmt.Sprintf("%s-%d-%s", name, time.Now().UnixMilli(), uuid.NewString()[:8])
	}

	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}

	return events.ToolCallRequest{
		CallID: callID,
		Name:   name,
		Args:   args,
	}
}

// fail resolves a stream error. Cancellation wins over everything and
// suppresses reporting; authentication errors propagate silently; any other
// failure becomes a terminal EventError after a best-effort report.
func (t *Turn) fail(ctx context.Context, req *generation.Request, emit func(events.Event), err error) error {
	if ctx.Err() != nil {
		emit(events.NewUserCancelledEvent(t.metadata()))
		return nil
	}

	var authErr *generation.AuthenticationError
	if errors.As(err, &authErr) {
		return err
	}

	if path, reportErr := WriteReport("error when talking to the model API", err, req, "turn-run"); reportErr != nil {
		log.Debug().Err(reportErr).Msg("failed to write diagnostic report")
	} else {
		log.Debug().Str("path", path).Msg("wrote diagnostic report")
	}

	emit(events.NewErrorEvent(t.metadata(), err))
	return nil
}

func (t *Turn) metadata() events.EventMetadata {
	return events.EventMetadata{
		ID:        uuid.New(),
		SessionID: t.sessionID,
		TurnID:    t.turnID,
		Model:     t.model,
	}
}

func firstPart(resp *generation.Response) (generation.Part, bool) {
	if resp == nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return generation.Part{}, false
	}
	return resp.Candidates[0].Content.Parts[0], true
}

// ParseThought splits a reasoning fragment into its bolded subject and the
// remaining description. The subject is the first **...** span; without one
// the whole text becomes the description. Both halves are trimmed.
func ParseThought(text string) (subject, description string) {
	start := strings.Index(text, "**")
	if start >= 0 {
		rest := text[start+2:]
		if end := strings.Index(rest, "**"); end >= 0 {
			subject = strings.TrimSpace(rest[:end])
			description = strings.TrimSpace(text[:start] + rest[end+2:])
			return subject, description
		}
	}
	return "", strings.TrimSpace(text)
}
