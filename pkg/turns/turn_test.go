package turns

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStream replays a fixed chunk sequence, then ends with io.EOF or a
// scripted error. onRecv fires before each chunk is handed out so tests can
// cancel mid-stream.
type scriptedStream struct {
	chunks []*generation.Response
	err    error
	onRecv func(index int)
	next   int
}

func (s *scriptedStream) Recv() (*generation.Response, error) {
	if s.next < len(s.chunks) {
		if s.onRecv != nil {
			s.onRecv(s.next)
		}
		chunk := s.chunks[s.next]
		s.next++
		return chunk, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

type scriptedGenerator struct {
	stream  *scriptedStream
	openErr error
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, req *generation.Request) (*generation.Response, error) {
	return nil, errors.New("not implemented")
}

func (g *scriptedGenerator) GenerateContentStream(ctx context.Context, req *generation.Request) (generation.ResponseStream, error) {
	if g.openErr != nil {
		return nil, g.openErr
	}
	return g.stream, nil
}

func (g *scriptedGenerator) CountTokens(ctx context.Context, req *generation.Request) (*generation.TokenCount, error) {
	return nil, errors.New("not implemented")
}

func (g *scriptedGenerator) EmbedContent(ctx context.Context, req *generation.EmbedRequest) (*generation.Embedding, error) {
	return nil, errors.New("not implemented")
}

func textChunk(text string) *generation.Response {
	return &generation.Response{Candidates: []generation.Candidate{{
		Content: generation.NewModelContent(generation.NewTextPart(text)),
	}}}
}

func thoughtChunk(text string) *generation.Response {
	return &generation.Response{Candidates: []generation.Candidate{{
		Content: generation.Content{
			Role:  generation.RoleModel,
			Parts: []generation.Part{{Text: text, Thought: true}},
		},
	}}}
}

func callChunk(calls ...generation.FunctionCall) *generation.Response {
	var parts []generation.Part
	for _, fc := range calls {
		parts = append(parts, generation.NewFunctionCallPart(fc))
	}
	return &generation.Response{Candidates: []generation.Candidate{{
		Content: generation.Content{Role: generation.RoleModel, Parts: parts},
	}}}
}

func finalChunk(reason generation.FinishReason, usage *generation.UsageMetadata) *generation.Response {
	return &generation.Response{
		Candidates:    []generation.Candidate{{FinishReason: reason}},
		UsageMetadata: usage,
	}
}

func runTurn(t *testing.T, ctx context.Context, gen *scriptedGenerator) (*Turn, []events.Event, error) {
	t.Helper()
	turn := NewTurn(gen, "session-1", "turn-1")
	var emitted []events.Event
	err := turn.Run(ctx, &generation.Request{Model: "gemini-2.5-pro"}, func(ev events.Event) {
		emitted = append(emitted, ev)
	})
	return turn, emitted, err
}

func TestRunEmitsContentInOrder(t *testing.T) {
	gen := &scriptedGenerator{stream: &scriptedStream{chunks: []*generation.Response{
		textChunk("Hello"),
		textChunk(" world"),
		finalChunk(generation.FinishReasonStop, &generation.UsageMetadata{TotalTokenCount: 7}),
	}}}

	turn, emitted, err := runTurn(t, context.Background(), gen)
	require.NoError(t, err)
	require.Len(t, emitted, 3)

	first, ok := emitted[0].(*events.EventContent)
	require.True(t, ok)
	assert.Equal(t, "Hello", first.Text)
	second, ok := emitted[1].(*events.EventContent)
	require.True(t, ok)
	assert.Equal(t, " world", second.Text)

	finished, ok := emitted[2].(*events.EventFinished)
	require.True(t, ok)
	assert.Equal(t, generation.FinishReasonStop, finished.Reason)
	require.NotNil(t, finished.Metadata().Usage)
	assert.Equal(t, 7, finished.Metadata().Usage.TotalTokenCount)

	assert.Empty(t, turn.PendingToolCalls)
	assert.Len(t, turn.DebugResponses(), 3)

	meta := first.Metadata()
	assert.Equal(t, "session-1", meta.SessionID)
	assert.Equal(t, "turn-1", meta.TurnID)
	assert.Equal(t, "gemini-2.5-pro", meta.Model)
}

func TestRunParsesThoughtChunks(t *testing.T) {
	gen := &scriptedGenerator{stream: &scriptedStream{chunks: []*generation.Response{
		thoughtChunk("**Planning the edit** I should read the file first."),
		textChunk("Reading it now."),
	}}}

	_, emitted, err := runTurn(t, context.Background(), gen)
	require.NoError(t, err)
	require.Len(t, emitted, 3)

	thought, ok := emitted[0].(*events.EventThought)
	require.True(t, ok)
	assert.Equal(t, "Planning the edit", thought.Subject)
	assert.Equal(t, "I should read the file first.", thought.Description)

	_, ok = emitted[1].(*events.EventContent)
	assert.True(t, ok)
}

func TestRunSynthesizesToolCallRequests(t *testing.T) {
	gen := &scriptedGenerator{stream: &scriptedStream{chunks: []*generation.Response{
		callChunk(
			generation.FunctionCall{ID: "provider-1", Name: "read_file", Args: map[string]any{"path": "a.go"}},
			generation.FunctionCall{Name: "glob", Args: map[string]any{"pattern": "*.go"}},
			generation.FunctionCall{Name: "glob"},
		),
	}}}

	turn, emitted, err := runTurn(t, context.Background(), gen)
	require.NoError(t, err)
	require.Len(t, turn.PendingToolCalls, 3)

	first := turn.PendingToolCalls[0]
	assert.Equal(t, "provider-1", first.CallID, "provider-assigned id wins")
	assert.Equal(t, "read_file", first.Name)

	second := turn.PendingToolCalls[1]
	third := turn.PendingToolCalls[2]
	assert.NotEmpty(t, second.CallID)
	assert.NotEmpty(t, third.CallID)
	assert.NotEqual(t, second.CallID, third.CallID,
		"duplicate names in one chunk still get distinct call ids")
	assert.Contains(t, second.CallID, "glob-")

	require.NotNil(t, third.Args, "missing args become an empty map")
	assert.Empty(t, third.Args)

	var requestEvents int
	for _, ev := range emitted {
		if req, ok := ev.(*events.EventToolCallRequest); ok {
			assert.Equal(t, turn.PendingToolCalls[requestEvents].CallID, req.ToolCall.CallID)
			requestEvents++
		}
	}
	assert.Equal(t, 3, requestEvents)
}

func TestRunSubstitutesUndefinedToolName(t *testing.T) {
	gen := &scriptedGenerator{stream: &scriptedStream{chunks: []*generation.Response{
		callChunk(generation.FunctionCall{Args: map[string]any{"x": 1}}),
	}}}

	turn, _, err := runTurn(t, context.Background(), gen)
	require.NoError(t, err)
	require.Len(t, turn.PendingToolCalls, 1)
	assert.Equal(t, events.UndefinedToolName, turn.PendingToolCalls[0].Name)
}

func TestRunCancellationAbandonsInFlightChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := &scriptedStream{chunks: []*generation.Response{
		textChunk("first"),
		textChunk("second"),
	}}
	stream.onRecv = func(index int) {
		if index == 1 {
			cancel()
		}
	}
	gen := &scriptedGenerator{stream: stream}

	turn, emitted, err := runTurn(t, ctx, gen)
	require.NoError(t, err)
	require.Len(t, emitted, 2)

	first, ok := emitted[0].(*events.EventContent)
	require.True(t, ok)
	assert.Equal(t, "first", first.Text)

	_, ok = emitted[1].(*events.EventUserCancelled)
	require.True(t, ok, "cancellation ends the turn with a single cancelled event")

	require.Len(t, turn.DebugResponses(), 1, "the abandoned chunk is not recorded")
	assert.Equal(t, "first", turn.DebugResponses()[0].Text())
}

func TestRunStreamErrorEmitsErrorEventAndReport(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	streamErr := generation.NewAPIError("model overloaded", 503, nil)
	gen := &scriptedGenerator{stream: &scriptedStream{
		chunks: []*generation.Response{textChunk("partial")},
		err:    streamErr,
	}}

	_, emitted, err := runTurn(t, context.Background(), gen)
	require.NoError(t, err, "non-auth failures are absorbed into events")
	require.Len(t, emitted, 2)

	errEvent, ok := emitted[1].(*events.EventError)
	require.True(t, ok)
	assert.Contains(t, errEvent.ErrorString, "model overloaded")
	require.NotNil(t, errEvent.Status)
	assert.Equal(t, 503, *errEvent.Status)

	reports, globErr := filepath.Glob(filepath.Join(tmp, "jiminy-client-error-turn-run-*.json"))
	require.NoError(t, globErr)
	require.Len(t, reports, 1, "exactly one diagnostic report per failure")

	raw, readErr := os.ReadFile(reports[0])
	require.NoError(t, readErr)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Contains(t, payload["error"], "model overloaded")
	assert.NotNil(t, payload["context"], "the failed request travels with the report")
}

func TestRunAuthErrorPropagatesSilently(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	authErr := generation.NewAuthenticationError("key revoked", 401, nil)
	gen := &scriptedGenerator{stream: &scriptedStream{err: authErr}}

	_, emitted, err := runTurn(t, context.Background(), gen)
	require.Error(t, err)
	assert.True(t, generation.IsAuthenticationError(err))
	assert.Empty(t, emitted, "auth failures produce no events")

	reports, globErr := filepath.Glob(filepath.Join(tmp, "jiminy-client-error-*.json"))
	require.NoError(t, globErr)
	assert.Empty(t, reports, "auth failures are not reported")
}

func TestRunCancelledFailureSuppressesReport(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedGenerator{stream: &scriptedStream{err: errors.New("connection reset")}}

	_, emitted, err := runTurn(t, ctx, gen)
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	_, ok := emitted[0].(*events.EventUserCancelled)
	assert.True(t, ok)

	reports, globErr := filepath.Glob(filepath.Join(tmp, "jiminy-client-error-*.json"))
	require.NoError(t, globErr)
	assert.Empty(t, reports)
}

func TestRunStreamOpenFailure(t *testing.T) {
	gen := &scriptedGenerator{openErr: generation.NewAPIError("bad request", 400, nil)}

	_, emitted, err := runTurn(t, context.Background(), gen)
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	errEvent, ok := emitted[0].(*events.EventError)
	require.True(t, ok)
	assert.Contains(t, errEvent.ErrorString, "bad request")
}

func TestParseThought(t *testing.T) {
	cases := []struct {
		name        string
		text        string
		subject     string
		description string
	}{
		{"subject and rest", "**Choosing a file** The config looks relevant.", "Choosing a file", "The config looks relevant."},
		{"no marker", "  just some reasoning  ", "", "just some reasoning"},
		{"subject only", "**Done**", "Done", ""},
		{"marker mid-text", "first **Key Insight** second", "Key Insight", "first  second"},
		{"unterminated marker", "**oops no closing", "", "**oops no closing"},
		{"empty", "", "", ""},
		{"multiline description", "**Plan**\nread\nthen write", "Plan", "read\nthen write"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subject, description := ParseThought(tc.text)
			assert.Equal(t, tc.subject, subject)
			assert.Equal(t, tc.description, description)
		})
	}
}

func TestWriteReportFallsBackWhenContextIsUnmarshalable(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	path, err := WriteReport("boom", errors.New("kaput"), map[string]any{"ch": make(chan int)}, "test")
	require.NoError(t, err)

	raw, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "boom", payload["message"])
	assert.Equal(t, "kaput", payload["error"])
	_, hasContext := payload["context"]
	assert.False(t, hasContext, "unmarshalable context is dropped, not fatal")
}
