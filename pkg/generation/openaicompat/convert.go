package openaicompat

import (
	"encoding/json"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") ||
		strings.HasPrefix(m, "gpt-5")
}

// buildChatMessages converts request contents into the chat-completion
// message sequence. Assistant tool calls become tool_calls entries; tool
// results become role=tool messages correlated by tool_call_id. When a
// function response carries no id, the id recorded for the most recent
// uncorrelated call of the same name is used.
func buildChatMessages(req *generation.Request) []go_openai.ChatCompletionMessage {
	var msgs []go_openai.ChatCompletionMessage

	if req.SystemInstruction != nil && !req.SystemInstruction.IsEmpty() {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    "system",
			Content: req.SystemInstruction.Text(),
		})
	}

	// queue of pending call ids per tool name, for id-less responses
	idsByName := map[string][]string{}

	for _, c := range req.Contents {
		switch c.Role {
		case generation.RoleUser:
			text := c.Text()
			if text == "" {
				log.Debug().Str("role", c.Role).Msg("skipping empty text content")
				continue
			}
			msgs = append(msgs, go_openai.ChatCompletionMessage{Role: "user", Content: text})

		case generation.RoleModel:
			text := c.Text()
			var toolCalls []go_openai.ToolCall
			for _, p := range c.Parts {
				if p.FunctionCall == nil {
					continue
				}
				argsStr := "{}"
				if len(p.FunctionCall.Args) > 0 {
					if b, err := json.Marshal(p.FunctionCall.Args); err == nil {
						argsStr = string(b)
					}
				}
				toolCalls = append(toolCalls, go_openai.ToolCall{
					ID:   p.FunctionCall.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      p.FunctionCall.Name,
						Arguments: argsStr,
					},
				})
				if p.FunctionCall.ID != "" {
					idsByName[p.FunctionCall.Name] = append(idsByName[p.FunctionCall.Name], p.FunctionCall.ID)
				}
			}
			if text == "" && len(toolCalls) == 0 {
				continue
			}
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   text,
				ToolCalls: toolCalls,
			})

		case generation.RoleTool:
			for _, p := range c.Parts {
				if p.FunctionResponse == nil {
					continue
				}
				id := p.FunctionResponse.ID
				if id == "" {
					if q := idsByName[p.FunctionResponse.Name]; len(q) > 0 {
						id = q[0]
						idsByName[p.FunctionResponse.Name] = q[1:]
						log.Debug().Str("name", p.FunctionResponse.Name).Str("tool_call_id", id).Msg("correlated tool response by name")
					}
				}
				content := ""
				if p.FunctionResponse.Response != nil {
					if b, err := json.Marshal(p.FunctionResponse.Response); err == nil {
						content = string(b)
					}
				}
				msgs = append(msgs, go_openai.ChatCompletionMessage{
					Role:       "tool",
					Content:    content,
					ToolCallID: id,
				})
			}
		}
	}

	return msgs
}

func convertTools(decls []generation.ToolDeclaration) []go_openai.Tool {
	var out []go_openai.Tool
	for _, td := range decls {
		fd := &go_openai.FunctionDefinition{
			Name:        td.Name,
			Description: td.Description,
		}
		if td.Parameters != nil {
			if b, err := json.Marshal(td.Parameters); err == nil {
				fd.Parameters = json.RawMessage(b)
			} else {
				log.Warn().Err(err).Str("tool", td.Name).Msg("failed to marshal tool parameters")
			}
		}
		out = append(out, go_openai.Tool{
			Type:     go_openai.ToolTypeFunction,
			Function: fd,
		})
	}
	return out
}

// makeChatCompletionRequest builds the wire request, including the
// reasoning-model parameter shuffle (max_completion_tokens instead of
// max_tokens, no sampling parameters).
func makeChatCompletionRequest(req *generation.Request, stream bool) (*go_openai.ChatCompletionRequest, error) {
	if req.Model == "" {
		return nil, errors.New("no model specified")
	}
	msgs := buildChatMessages(req)
	if len(msgs) == 0 {
		return nil, errors.New("request has no contents")
	}

	temperature := 0.0
	topP := 0.0
	maxTokens := 0
	maxCompletionTokens := 0
	n := 0
	var stop []string
	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			temperature = *cfg.Temperature
		}
		if cfg.TopP != nil {
			topP = *cfg.TopP
		}
		if cfg.MaxOutputTokens != nil {
			maxTokens = *cfg.MaxOutputTokens
		}
		if cfg.CandidateCount != nil {
			n = *cfg.CandidateCount
		}
		stop = cfg.StopSequences
	}

	if isReasoningModel(req.Model) {
		maxCompletionTokens = maxTokens
		maxTokens = 0
		temperature = 0
		topP = 0
		n = 0
	}

	var streamOptions *go_openai.StreamOptions
	if stream && !strings.Contains(req.Model, "mistral") {
		streamOptions = &go_openai.StreamOptions{IncludeUsage: true}
	}

	out := &go_openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            msgs,
		MaxTokens:           maxTokens,
		MaxCompletionTokens: maxCompletionTokens,
		Temperature:         float32(temperature),
		TopP:                float32(topP),
		N:                   n,
		Stream:              stream,
		Stop:                stop,
		StreamOptions:       streamOptions,
		Tools:               convertTools(req.Tools),
	}

	log.Debug().
		Str("model", out.Model).
		Int("num_messages", len(out.Messages)).
		Int("num_tools", len(out.Tools)).
		Int("max_tokens", out.MaxTokens).
		Int("max_completion_tokens", out.MaxCompletionTokens).
		Bool("stream", stream).
		Msg("built chat completion request")

	return out, nil
}

func convertFinishReason(fr go_openai.FinishReason) generation.FinishReason {
	switch fr {
	case go_openai.FinishReasonStop:
		return generation.FinishReasonStop
	case go_openai.FinishReasonLength:
		return generation.FinishReasonMaxTokens
	case go_openai.FinishReasonToolCalls, go_openai.FinishReasonFunctionCall:
		return generation.FinishReasonToolCalls
	case go_openai.FinishReasonContentFilter:
		return generation.FinishReasonSafety
	case go_openai.FinishReasonNull, "":
		return generation.FinishReasonUnspecified
	default:
		return generation.FinishReasonOther
	}
}

// parseCallArgs decodes a tool call's accumulated argument string. Invalid
// or empty JSON yields an empty map so downstream consumers always see
// usable arguments.
func parseCallArgs(name string, raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		log.Debug().Str("name", name).Str("arguments", raw).Msg("failed to parse tool call arguments")
		return map[string]any{}
	}
	return args
}

func convertToolCallParts(toolCalls []go_openai.ToolCall) []generation.Part {
	var parts []generation.Part
	for _, tc := range toolCalls {
		parts = append(parts, generation.NewFunctionCallPart(generation.FunctionCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: parseCallArgs(tc.Function.Name, tc.Function.Arguments),
		}))
	}
	return parts
}

func convertUsage(u *go_openai.Usage) *generation.UsageMetadata {
	if u == nil {
		return nil
	}
	return &generation.UsageMetadata{
		PromptTokenCount:     u.PromptTokens,
		CandidatesTokenCount: u.CompletionTokens,
		TotalTokenCount:      u.TotalTokens,
	}
}

func convertChatCompletionResponse(resp *go_openai.ChatCompletionResponse) *generation.Response {
	out := &generation.Response{ModelVersion: resp.Model}
	for _, choice := range resp.Choices {
		var parts []generation.Part
		if choice.Message.Content != "" {
			parts = append(parts, generation.NewTextPart(choice.Message.Content))
		}
		parts = append(parts, convertToolCallParts(choice.Message.ToolCalls)...)
		out.Candidates = append(out.Candidates, generation.Candidate{
			Index:        choice.Index,
			FinishReason: convertFinishReason(choice.FinishReason),
			Content: generation.Content{
				Role:  generation.RoleModel,
				Parts: parts,
			},
		})
	}
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		out.UsageMetadata = convertUsage(&resp.Usage)
	}
	return out
}

// wrapOpenAIError classifies client errors into the shared error hierarchy.
func wrapOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403 {
			return generation.NewAuthenticationError(apiErr.Message, apiErr.HTTPStatusCode, err)
		}
		return generation.NewAPIError(apiErr.Message, apiErr.HTTPStatusCode, err)
	}

	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403 {
			return generation.NewAuthenticationError(err.Error(), reqErr.HTTPStatusCode, err)
		}
		return generation.NewAPIError(err.Error(), reqErr.HTTPStatusCode, err)
	}

	return generation.WrapAPIError(err, "chat completion request failed")
}
