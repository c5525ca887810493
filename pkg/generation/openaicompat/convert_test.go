package openaicompat

import (
	"testing"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/invopop/jsonschema"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChatMessagesBasicConversation(t *testing.T) {
	req := &generation.Request{
		SystemInstruction: &generation.Content{
			Parts: []generation.Part{generation.NewTextPart("You are a coding assistant.")},
		},
		Contents: []generation.Content{
			generation.NewUserContent(generation.NewTextPart("hi")),
			generation.NewModelContent(generation.NewTextPart("hello, how can I help?")),
			generation.NewUserContent(generation.NewTextPart("list the files")),
		},
	}

	msgs := buildChatMessages(req)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "You are a coding assistant.", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "user", msgs[3].Role)
}

func TestBuildChatMessagesToolCallsAndResponses(t *testing.T) {
	req := &generation.Request{
		Contents: []generation.Content{
			generation.NewUserContent(generation.NewTextPart("read main.go")),
			generation.NewModelContent(generation.NewFunctionCallPart(generation.FunctionCall{
				ID:   "call_1",
				Name: "read_file",
				Args: map[string]any{"path": "main.go"},
			})),
			generation.NewToolContent(generation.NewFunctionResponsePart(generation.FunctionResponse{
				ID:       "call_1",
				Name:     "read_file",
				Response: map[string]any{"output": "package main"},
			})),
		},
	}

	msgs := buildChatMessages(req)
	require.Len(t, msgs, 3)

	assistant := msgs[1]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, go_openai.ToolTypeFunction, assistant.ToolCalls[0].Type)
	assert.Equal(t, "read_file", assistant.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"path":"main.go"}`, assistant.ToolCalls[0].Function.Arguments)

	tool := msgs[2]
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "call_1", tool.ToolCallID)
	assert.JSONEq(t, `{"output":"package main"}`, tool.Content)
}

func TestBuildChatMessagesCorrelatesResponseByName(t *testing.T) {
	req := &generation.Request{
		Contents: []generation.Content{
			generation.NewUserContent(generation.NewTextPart("glob for go files")),
			generation.NewModelContent(generation.NewFunctionCallPart(generation.FunctionCall{
				ID:   "call_glob_9",
				Name: "glob",
				Args: map[string]any{"pattern": "*.go"},
			})),
			// response carries no id, only the tool name
			generation.NewToolContent(generation.NewFunctionResponsePart(generation.FunctionResponse{
				Name:     "glob",
				Response: map[string]any{"output": "main.go"},
			})),
		},
	}

	msgs := buildChatMessages(req)
	require.Len(t, msgs, 3)
	assert.Equal(t, "call_glob_9", msgs[2].ToolCallID)
}

func TestBuildChatMessagesCorrelationConsumesIDs(t *testing.T) {
	req := &generation.Request{
		Contents: []generation.Content{
			generation.NewModelContent(
				generation.NewFunctionCallPart(generation.FunctionCall{ID: "call_a", Name: "read_file", Args: map[string]any{"path": "a"}}),
				generation.NewFunctionCallPart(generation.FunctionCall{ID: "call_b", Name: "read_file", Args: map[string]any{"path": "b"}}),
			),
			generation.NewToolContent(
				generation.NewFunctionResponsePart(generation.FunctionResponse{Name: "read_file", Response: map[string]any{"output": "A"}}),
				generation.NewFunctionResponsePart(generation.FunctionResponse{Name: "read_file", Response: map[string]any{"output": "B"}}),
			),
		},
	}

	msgs := buildChatMessages(req)
	require.Len(t, msgs, 3)
	assert.Equal(t, "call_a", msgs[1].ToolCallID)
	assert.Equal(t, "call_b", msgs[2].ToolCallID)
}

func TestBuildChatMessagesSkipsEmptyContents(t *testing.T) {
	req := &generation.Request{
		Contents: []generation.Content{
			generation.NewUserContent(generation.NewTextPart("")),
			generation.NewUserContent(generation.NewTextPart("real message")),
		},
	}

	msgs := buildChatMessages(req)
	require.Len(t, msgs, 1)
	assert.Equal(t, "real message", msgs[0].Content)
}

func TestConvertTools(t *testing.T) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(struct {
		Path string `json:"path"`
	}{})

	tools := convertTools([]generation.ToolDeclaration{
		{Name: "read_file", Description: "Read a file from disk", Parameters: schema},
	})

	require.Len(t, tools, 1)
	assert.Equal(t, go_openai.ToolTypeFunction, tools[0].Type)
	assert.Equal(t, "read_file", tools[0].Function.Name)
	assert.Equal(t, "Read a file from disk", tools[0].Function.Description)
	assert.NotNil(t, tools[0].Function.Parameters)
}

func TestMakeChatCompletionRequestReasoningModel(t *testing.T) {
	maxTokens := 1000
	temp := 0.7
	req := &generation.Request{
		Model: "o3-mini",
		Contents: []generation.Content{
			generation.NewUserContent(generation.NewTextPart("hi")),
		},
		Config: &generation.GenerationConfig{
			MaxOutputTokens: &maxTokens,
			Temperature:     &temp,
		},
	}

	out, err := makeChatCompletionRequest(req, false)
	require.NoError(t, err)
	assert.Equal(t, 0, out.MaxTokens)
	assert.Equal(t, 1000, out.MaxCompletionTokens)
	assert.Equal(t, float32(0), out.Temperature)
}

func TestMakeChatCompletionRequestStreamOptions(t *testing.T) {
	req := &generation.Request{
		Model: "gpt-4o",
		Contents: []generation.Content{
			generation.NewUserContent(generation.NewTextPart("hi")),
		},
	}

	out, err := makeChatCompletionRequest(req, true)
	require.NoError(t, err)
	require.NotNil(t, out.StreamOptions)
	assert.True(t, out.StreamOptions.IncludeUsage)

	req.Model = "mistral-large"
	out, err = makeChatCompletionRequest(req, true)
	require.NoError(t, err)
	assert.Nil(t, out.StreamOptions)
}

func TestMakeChatCompletionRequestValidation(t *testing.T) {
	_, err := makeChatCompletionRequest(&generation.Request{Model: ""}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model")

	_, err = makeChatCompletionRequest(&generation.Request{Model: "gpt-4o"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no contents")
}

func TestConvertFinishReason(t *testing.T) {
	assert.Equal(t, generation.FinishReasonStop, convertFinishReason(go_openai.FinishReasonStop))
	assert.Equal(t, generation.FinishReasonMaxTokens, convertFinishReason(go_openai.FinishReasonLength))
	assert.Equal(t, generation.FinishReasonToolCalls, convertFinishReason(go_openai.FinishReasonToolCalls))
	assert.Equal(t, generation.FinishReasonToolCalls, convertFinishReason(go_openai.FinishReasonFunctionCall))
	assert.Equal(t, generation.FinishReasonSafety, convertFinishReason(go_openai.FinishReasonContentFilter))
	assert.Equal(t, generation.FinishReasonUnspecified, convertFinishReason(go_openai.FinishReasonNull))
	assert.Equal(t, generation.FinishReasonUnspecified, convertFinishReason(""))
}

func TestParseCallArgs(t *testing.T) {
	args := parseCallArgs("read_file", `{"path":"main.go"}`)
	assert.Equal(t, "main.go", args["path"])

	// invalid JSON yields an empty map, not nil
	args = parseCallArgs("read_file", `{"path":`)
	require.NotNil(t, args)
	assert.Empty(t, args)

	args = parseCallArgs("read_file", "")
	require.NotNil(t, args)
	assert.Empty(t, args)
}

func TestConvertChatCompletionResponse(t *testing.T) {
	resp := &go_openai.ChatCompletionResponse{
		Model: "gpt-4o-2024-08-06",
		Choices: []go_openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: go_openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: "done",
					ToolCalls: []go_openai.ToolCall{
						{ID: "call_7", Type: go_openai.ToolTypeFunction,
							Function: go_openai.FunctionCall{Name: "glob", Arguments: `{"pattern":"*.md"}`}},
					},
				},
				FinishReason: go_openai.FinishReasonToolCalls,
			},
		},
		Usage: go_openai.Usage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
	}

	out := convertChatCompletionResponse(resp)
	assert.Equal(t, "gpt-4o-2024-08-06", out.ModelVersion)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, generation.FinishReasonToolCalls, out.Candidates[0].FinishReason)
	assert.Equal(t, "done", out.Text())

	calls := out.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_7", calls[0].ID)
	assert.Equal(t, "glob", calls[0].Name)
	assert.Equal(t, "*.md", calls[0].Args["pattern"])

	require.NotNil(t, out.UsageMetadata)
	assert.Equal(t, 12, out.UsageMetadata.PromptTokenCount)
	assert.Equal(t, 4, out.UsageMetadata.CandidatesTokenCount)
	assert.Equal(t, 16, out.UsageMetadata.TotalTokenCount)
}

func TestWrapOpenAIErrorAuthentication(t *testing.T) {
	apiErr := &go_openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}
	wrapped := wrapOpenAIError(apiErr)
	assert.True(t, generation.IsAuthenticationError(wrapped))
	assert.Equal(t, 401, generation.StatusCodeOf(wrapped))
}

func TestWrapOpenAIErrorRateLimit(t *testing.T) {
	apiErr := &go_openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	wrapped := wrapOpenAIError(apiErr)
	assert.False(t, generation.IsAuthenticationError(wrapped))
	assert.Equal(t, 429, generation.StatusCodeOf(wrapped))
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o1-preview"))
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5"))
	assert.False(t, isReasoningModel("gpt-4o"))
	assert.False(t, isReasoningModel("qwen2.5-coder"))
}
