package openaicompat

import (
	"io"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// openaiStream adapts a chat completion stream to generation.ResponseStream.
// Text deltas pass through as they arrive; fragmented tool call deltas are
// merged by index and surfaced as complete function calls in a final
// response once the provider stream ends.
type openaiStream struct {
	stream *go_openai.ChatCompletionStream
	model  string

	merger        *ToolCallMerger
	usage         *generation.UsageMetadata
	pendingFinish generation.FinishReason

	chunkCount int
	done       bool
	flushed    bool
}

func newOpenAIStream(stream *go_openai.ChatCompletionStream, model string) *openaiStream {
	return &openaiStream{
		stream: stream,
		model:  model,
		merger: NewToolCallMerger(),
	}
}

func (s *openaiStream) Recv() (*generation.Response, error) {
	if s.done {
		return s.flush()
	}

	for {
		chunk, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			log.Debug().Int("chunks_received", s.chunkCount).Msg("chat completion stream completed")
			s.done = true
			return s.flush()
		}
		if err != nil {
			log.Error().Err(err).Int("chunks_received", s.chunkCount).Msg("chat completion stream receive failed")
			return nil, wrapOpenAIError(err)
		}
		s.chunkCount++

		if resp, emit := s.consumeChunk(&chunk); emit {
			return resp, nil
		}
	}
}

// consumeChunk folds one provider chunk into the stream state. It returns a
// response to surface for text deltas; tool call fragments and usage-only
// chunks accumulate silently.
func (s *openaiStream) consumeChunk(chunk *go_openai.ChatCompletionStreamResponse) (*generation.Response, bool) {
	if chunk.Usage != nil {
		s.usage = convertUsage(chunk.Usage)
	}
	if len(chunk.Choices) == 0 {
		return nil, false
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != "" && choice.FinishReason != go_openai.FinishReasonNull {
		s.pendingFinish = convertFinishReason(choice.FinishReason)
	}

	if len(choice.Delta.ToolCalls) > 0 {
		s.merger.AddToolCalls(choice.Delta.ToolCalls)
		for _, tc := range choice.Delta.ToolCalls {
			argPreview := tc.Function.Arguments
			if len(argPreview) > 200 {
				argPreview = argPreview[:200] + "…"
			}
			log.Debug().
				Int("chunk", s.chunkCount).
				Str("tool_id", tc.ID).
				Str("name", tc.Function.Name).
				Str("arguments_delta", argPreview).
				Msg("received tool_call delta")
		}
	}

	if choice.Delta.Content == "" {
		return nil, false
	}

	return &generation.Response{
		ModelVersion: s.model,
		Candidates: []generation.Candidate{
			{
				Index: choice.Index,
				Content: generation.Content{
					Role:  generation.RoleModel,
					Parts: []generation.Part{generation.NewTextPart(choice.Delta.Content)},
				},
			},
		},
	}, true
}

// flush emits the end-of-stream response carrying merged tool calls, the
// finish reason and any usage the provider reported, exactly once.
func (s *openaiStream) flush() (*generation.Response, error) {
	if s.flushed {
		return nil, io.EOF
	}
	s.flushed = true

	calls := s.merger.GetToolCalls()
	if len(calls) == 0 && s.usage == nil && s.pendingFinish == generation.FinishReasonUnspecified {
		return nil, io.EOF
	}

	out := &generation.Response{
		ModelVersion:  s.model,
		UsageMetadata: s.usage,
	}

	finish := s.pendingFinish
	if len(calls) > 0 {
		finish = generation.FinishReasonToolCalls
	}
	out.Candidates = []generation.Candidate{
		{
			FinishReason: finish,
			Content: generation.Content{
				Role:  generation.RoleModel,
				Parts: convertToolCallParts(calls),
			},
		},
	}

	log.Debug().
		Int("tool_call_count", len(calls)).
		Str("finish_reason", string(finish)).
		Msg("flushing end-of-stream response")

	return out, nil
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

var _ generation.ResponseStream = (*openaiStream)(nil)
