package generation

import (
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
)

// Role constants used on Content entries.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// FunctionCall is a model-requested invocation of a declared tool.
// ID may be empty when the provider does not assign call identifiers.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries the result of a tool execution back to the model.
// ID must match the originating FunctionCall's id when the provider requires
// correlation (the OpenAI-compatible wire does).
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// Part is one fragment of a Content entry. Exactly one of Text,
// FunctionCall or FunctionResponse is expected to be set; Thought marks
// a text part as model reasoning rather than user-facing output.
type Part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// NewTextPart returns a plain text part.
func NewTextPart(text string) Part {
	return Part{Text: text}
}

// NewFunctionCallPart wraps a function call in a part.
func NewFunctionCallPart(fc FunctionCall) Part {
	return Part{FunctionCall: &fc}
}

// NewFunctionResponsePart wraps a function response in a part.
func NewFunctionResponsePart(fr FunctionResponse) Part {
	return Part{FunctionResponse: &fr}
}

// Content is one entry of conversation history: a role plus ordered parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserContent builds a user-role content entry.
func NewUserContent(parts ...Part) Content {
	return Content{Role: RoleUser, Parts: parts}
}

// NewModelContent builds a model-role content entry.
func NewModelContent(parts ...Part) Content {
	return Content{Role: RoleModel, Parts: parts}
}

// NewToolContent builds a tool-role content entry carrying function responses.
func NewToolContent(parts ...Part) Content {
	return Content{Role: RoleTool, Parts: parts}
}

// Text concatenates the non-thought text parts of the content.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// IsEmpty reports whether the content carries neither text nor function traffic.
func (c Content) IsEmpty() bool {
	for _, p := range c.Parts {
		if p.Text != "" || p.FunctionCall != nil || p.FunctionResponse != nil {
			return false
		}
	}
	return true
}

// ToolDeclaration describes a callable tool to the model.
type ToolDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// GenerationConfig tunes a single generation request. Nil pointer fields
// mean "provider default".
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	CandidateCount  *int     `json:"candidateCount,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// Request is the normalized generation request all backends accept.
// A nil Config leaves every tunable at the provider default.
type Request struct {
	Model             string            `json:"model"`
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []ToolDeclaration `json:"tools,omitempty"`
	Config            *GenerationConfig `json:"config,omitempty"`
}

// FinishReason is the normalized stop condition reported by a backend.
type FinishReason string

const (
	FinishReasonUnspecified FinishReason = ""
	FinishReasonStop        FinishReason = "STOP"
	FinishReasonMaxTokens   FinishReason = "MAX_TOKENS"
	FinishReasonSafety      FinishReason = "SAFETY"
	FinishReasonRecitation  FinishReason = "RECITATION"
	FinishReasonToolCalls   FinishReason = "TOOL_CALLS"
	FinishReasonOther       FinishReason = "OTHER"
)

// Candidate is one generated completion within a Response.
type Candidate struct {
	Content      Content      `json:"content"`
	FinishReason FinishReason `json:"finishReason,omitempty"`
	Index        int          `json:"index"`
}

// UsageMetadata aggregates the token accounting a backend reports for one
// request/response exchange. Fields a provider does not report stay zero.
type UsageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount"`
	CandidatesTokenCount    int `json:"candidatesTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	ToolUsePromptTokenCount int `json:"toolUsePromptTokenCount,omitempty"`
	TotalTokenCount         int `json:"totalTokenCount"`
}

func (u *UsageMetadata) MarshalZerologObject(e *zerolog.Event) {
	if u == nil {
		return
	}
	e.Int("prompt_tokens", u.PromptTokenCount).
		Int("candidates_tokens", u.CandidatesTokenCount).
		Int("total_tokens", u.TotalTokenCount)
	if u.CachedContentTokenCount != 0 {
		e.Int("cached_tokens", u.CachedContentTokenCount)
	}
	if u.ThoughtsTokenCount != 0 {
		e.Int("thoughts_tokens", u.ThoughtsTokenCount)
	}
	if u.ToolUsePromptTokenCount != 0 {
		e.Int("tool_use_prompt_tokens", u.ToolUsePromptTokenCount)
	}
}

// Response is the normalized response shape all backends produce, for both
// complete responses and individual stream chunks.
type Response struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// Text returns the concatenated non-thought text of the first candidate.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Text()
}

// FunctionCalls collects the function calls of the first candidate, in
// part order.
func (r *Response) FunctionCalls() []FunctionCall {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	var calls []FunctionCall
	for _, p := range r.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// FinishReason returns the first candidate's finish reason, if any.
func (r *Response) FinishReason() FinishReason {
	if r == nil || len(r.Candidates) == 0 {
		return FinishReasonUnspecified
	}
	return r.Candidates[0].FinishReason
}

// TokenCount is the result of a CountTokens call.
type TokenCount struct {
	TotalTokens int `json:"totalTokens"`
}

// EmbedRequest asks a backend for an embedding of the given text.
type EmbedRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Embedding is a single embedding vector.
type Embedding struct {
	Values []float32 `json:"values"`
}
