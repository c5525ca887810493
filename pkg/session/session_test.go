package session

import (
	"context"
	"io"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedStream struct {
	chunks []*generation.Response
	err    error
	next   int
}

func (s *scriptedStream) Recv() (*generation.Response, error) {
	if s.next < len(s.chunks) {
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

// scriptedGenerator hands out one stream per call and records every request
// it was asked to serve.
type scriptedGenerator struct {
	streams  []*scriptedStream
	requests []*generation.Request
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, req *generation.Request) (*generation.Response, error) {
	return nil, errors.New("not implemented")
}

func (g *scriptedGenerator) GenerateContentStream(ctx context.Context, req *generation.Request) (generation.ResponseStream, error) {
	g.requests = append(g.requests, req)
	if len(g.requests) > len(g.streams) {
		return nil, errors.New("no scripted stream left")
	}
	return g.streams[len(g.requests)-1], nil
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

func callChunk(calls ...generation.FunctionCall) *generation.Response {
	var parts []generation.Part
	for _, fc := range calls {
		parts = append(parts, generation.NewFunctionCallPart(fc))
	}
	return &generation.Response{Candidates: []generation.Candidate{{
		Content: generation.Content{Role: generation.RoleModel, Parts: parts},
	}}}
}

func TestSendMessageStreamBuildsRequestAndRecordsHistory(t *testing.T) {
	gen := &scriptedGenerator{streams: []*scriptedStream{
		{chunks: []*generation.Response{textChunk("Hello"), textChunk(" there")}},
	}}
	s := NewSession(gen,
		WithSessionID("session-1"),
		WithModel("gemini-2.5-pro"),
		WithSystemInstruction("You are terse."),
		WithToolDeclarations([]generation.ToolDeclaration{{Name: "read_file"}}),
	)

	var emitted []events.Event
	turn, err := s.SendMessageStream(context.Background(),
		[]generation.Part{generation.NewTextPart("hi")},
		func(ev events.Event) { emitted = append(emitted, ev) })
	require.NoError(t, err)
	require.NotNil(t, turn)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "gemini-2.5-pro", req.Model)
	require.NotNil(t, req.SystemInstruction)
	assert.Equal(t, "You are terse.", req.SystemInstruction.Text())
	require.Len(t, req.Tools, 1)
	require.Len(t, req.Contents, 1, "first exchange sends only the new user content")
	assert.Equal(t, "hi", req.Contents[0].Text())

	all := s.History().All()
	require.Len(t, all, 2)
	assert.Equal(t, generation.RoleUser, all[0].Role)
	assert.Equal(t, generation.RoleModel, all[1].Role)
	assert.Equal(t, "Hello there", all[1].Text(), "streamed fragments merge into one part")

	require.Len(t, emitted, 3)
	_, ok := emitted[2].(*events.EventFinished)
	assert.True(t, ok)
}

func TestSendMessageStreamUsesCuratedHistoryOnNextExchange(t *testing.T) {
	// The failed exchange writes a diagnostic report under os.TempDir.
	t.Setenv("TMPDIR", t.TempDir())

	gen := &scriptedGenerator{streams: []*scriptedStream{
		{err: generation.NewAPIError("overloaded", 503, nil)},
		{chunks: []*generation.Response{textChunk("worked this time")}},
	}}
	s := NewSession(gen, WithModel("gemini-2.5-pro"))

	_, err := s.SendMessageStream(context.Background(),
		[]generation.Part{generation.NewTextPart("first try")}, nil)
	require.NoError(t, err, "api failures are absorbed into the event stream")

	all := s.History().All()
	require.Len(t, all, 2)
	assert.Empty(t, all[1].Parts, "a failed turn records an empty model entry")

	_, err = s.SendMessageStream(context.Background(),
		[]generation.Part{generation.NewTextPart("second try")}, nil)
	require.NoError(t, err)

	require.Len(t, gen.requests, 2)
	second := gen.requests[1]
	require.Len(t, second.Contents, 1, "the failed exchange is curated away")
	assert.Equal(t, "second try", second.Contents[0].Text())
}

func TestSendMessageStreamAuthErrorLeavesHistoryUntouched(t *testing.T) {
	gen := &scriptedGenerator{streams: []*scriptedStream{
		{err: generation.NewAuthenticationError("expired", 401, nil)},
	}}
	s := NewSession(gen, WithModel("gemini-2.5-pro"))

	_, err := s.SendMessageStream(context.Background(),
		[]generation.Part{generation.NewTextPart("hi")}, nil)
	require.Error(t, err)
	assert.True(t, generation.IsAuthenticationError(err))
	assert.Zero(t, s.History().Len())
}

func TestSendMessageStreamFansOutToContextSinks(t *testing.T) {
	gen := &scriptedGenerator{streams: []*scriptedStream{
		{chunks: []*generation.Response{textChunk("hello")}},
	}}
	s := NewSession(gen, WithModel("gemini-2.5-pro"))

	collector := &events.CollectorSink{}
	ctx := events.WithEventSinks(context.Background(), collector)

	_, err := s.SendMessageStream(ctx, []generation.Part{generation.NewTextPart("hi")}, nil)
	require.NoError(t, err)

	sunk := collector.Events()
	require.Len(t, sunk, 2)
	content, ok := sunk[0].(*events.EventContent)
	require.True(t, ok)
	assert.Equal(t, "hello", content.Text)
	assert.Equal(t, "gemini-2.5-pro", content.Metadata().Model)
}

func TestAggregateModelOutputKeepsCallPositions(t *testing.T) {
	responses := []*generation.Response{
		textChunk("let me check "),
		textChunk("the files"),
		callChunk(generation.FunctionCall{ID: "c1", Name: "glob", Args: map[string]any{"pattern": "*.go"}}),
		{Candidates: []generation.Candidate{{Content: generation.Content{
			Role:  generation.RoleModel,
			Parts: []generation.Part{{Text: "internal reasoning", Thought: true}},
		}}}},
	}

	content := aggregateModelOutput(responses)
	require.Len(t, content.Parts, 2)
	assert.Equal(t, "let me check the files", content.Parts[0].Text)
	require.NotNil(t, content.Parts[1].FunctionCall)
	assert.Equal(t, "glob", content.Parts[1].FunctionCall.Name)
}
