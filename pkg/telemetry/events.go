package telemetry

import (
	"time"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/scheduler"
	"github.com/rs/zerolog"
)

// Event names as they appear in collector payloads and local logs.
const (
	EventNameStartSession = "start_session"
	EventNameEndSession   = "end_session"
	EventNameNewPrompt    = "new_prompt"
	EventNameToolCall     = "tool_call"
	EventNameApiRequest   = "api_request"
	EventNameApiError     = "api_error"
	EventNameApiResponse  = "api_response"
)

// Event is one usage record. Implementations are plain JSON-marshalable
// structs whose timestamp is captured at construction.
type Event interface {
	EventName() string
	zerolog.LogObjectMarshaler
}

func eventTimestamp() string {
	return time.Now().Format(time.RFC3339)
}

// StartSessionEvent records the configuration a session starts with.
type StartSessionEvent struct {
	Timestamp    string `json:"timestamp"`
	Model        string `json:"model"`
	ApprovalMode string `json:"approval_mode,omitempty"`
	ToolCount    int    `json:"tool_count"`
}

func NewStartSessionEvent(model, approvalMode string, toolCount int) *StartSessionEvent {
	return &StartSessionEvent{
		Timestamp:    eventTimestamp(),
		Model:        model,
		ApprovalMode: approvalMode,
		ToolCount:    toolCount,
	}
}

func (e *StartSessionEvent) EventName() string { return EventNameStartSession }

func (e *StartSessionEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("model", e.Model).Int("tool_count", e.ToolCount)
	if e.ApprovalMode != "" {
		ev.Str("approval_mode", e.ApprovalMode)
	}
}

// EndSessionEvent closes a session.
type EndSessionEvent struct {
	Timestamp string `json:"timestamp"`
}

func NewEndSessionEvent() *EndSessionEvent {
	return &EndSessionEvent{Timestamp: eventTimestamp()}
}

func (e *EndSessionEvent) EventName() string { return EventNameEndSession }

func (e *EndSessionEvent) MarshalZerologObject(ev *zerolog.Event) {}

// UserPromptEvent records a submitted prompt. The prompt text itself is
// only carried when the caller opts in.
type UserPromptEvent struct {
	Timestamp    string `json:"timestamp"`
	PromptLength int    `json:"prompt_length"`
	Text         string `json:"text,omitempty"`
}

func NewUserPromptEvent(prompt string, includeText bool) *UserPromptEvent {
	e := &UserPromptEvent{
		Timestamp:    eventTimestamp(),
		PromptLength: len(prompt),
	}
	if includeText {
		e.Text = prompt
	}
	return e
}

func (e *UserPromptEvent) EventName() string { return EventNameNewPrompt }

func (e *UserPromptEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("prompt_length", e.PromptLength)
}

// ToolCallEvent records the terminal state of one scheduled tool call.
type ToolCallEvent struct {
	Timestamp    string `json:"timestamp"`
	FunctionName string `json:"function_name"`
	Decision     string `json:"decision,omitempty"`
	Success      bool   `json:"success"`
	DurationMs   int64  `json:"duration_ms"`
	Outcome      string `json:"outcome,omitempty"`
}

// NewToolCallEvent captures a completed call. The decision field is only
// populated when the call went through a confirmation.
func NewToolCallEvent(call *scheduler.ToolCall) *ToolCallEvent {
	e := &ToolCallEvent{
		Timestamp:    eventTimestamp(),
		FunctionName: call.Request.Name,
		Success:      call.Status == scheduler.StatusSuccess,
		DurationMs:   call.DurationMs,
		Outcome:      string(call.Outcome),
	}
	if call.Outcome != scheduler.OutcomeUnspecified {
		e.Decision = string(call.Outcome.Decision())
	}
	return e
}

func (e *ToolCallEvent) EventName() string { return EventNameToolCall }

func (e *ToolCallEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("function_name", e.FunctionName).
		Bool("success", e.Success).
		Int64("duration_ms", e.DurationMs)
	if e.Decision != "" {
		ev.Str("decision", e.Decision)
	}
	if e.Outcome != "" {
		ev.Str("outcome", e.Outcome)
	}
}

// ApiRequestEvent records an outgoing generation request.
type ApiRequestEvent struct {
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
}

func NewApiRequestEvent(model string) *ApiRequestEvent {
	return &ApiRequestEvent{Timestamp: eventTimestamp(), Model: model}
}

func (e *ApiRequestEvent) EventName() string { return EventNameApiRequest }

func (e *ApiRequestEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("model", e.Model)
}

// ApiErrorEvent records a failed generation request.
type ApiErrorEvent struct {
	Timestamp    string `json:"timestamp"`
	Model        string `json:"model"`
	ErrorMessage string `json:"error_message"`
	StatusCode   int    `json:"status_code,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

func NewApiErrorEvent(model string, err error, duration time.Duration) *ApiErrorEvent {
	return &ApiErrorEvent{
		Timestamp:    eventTimestamp(),
		Model:        model,
		ErrorMessage: err.Error(),
		StatusCode:   generation.StatusCodeOf(err),
		DurationMs:   duration.Milliseconds(),
	}
}

func (e *ApiErrorEvent) EventName() string { return EventNameApiError }

func (e *ApiErrorEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("model", e.Model).Str("error_message", e.ErrorMessage).Int64("duration_ms", e.DurationMs)
	if e.StatusCode != 0 {
		ev.Int("status_code", e.StatusCode)
	}
}

// ApiResponseEvent records a successful generation exchange with its token
// accounting.
type ApiResponseEvent struct {
	Timestamp          string `json:"timestamp"`
	Model              string `json:"model"`
	StatusCode         int    `json:"status_code"`
	DurationMs         int64  `json:"duration_ms"`
	InputTokenCount    int    `json:"input_token_count"`
	OutputTokenCount   int    `json:"output_token_count"`
	CachedTokenCount   int    `json:"cached_content_token_count"`
	ThoughtsTokenCount int    `json:"thoughts_token_count"`
	ToolTokenCount     int    `json:"tool_token_count"`
	TotalTokenCount    int    `json:"total_token_count"`
}

func NewApiResponseEvent(model string, duration time.Duration, usage *generation.UsageMetadata) *ApiResponseEvent {
	e := &ApiResponseEvent{
		Timestamp:  eventTimestamp(),
		Model:      model,
		StatusCode: 200,
		DurationMs: duration.Milliseconds(),
	}
	if usage != nil {
		e.InputTokenCount = usage.PromptTokenCount
		e.OutputTokenCount = usage.CandidatesTokenCount
		e.CachedTokenCount = usage.CachedContentTokenCount
		e.ThoughtsTokenCount = usage.ThoughtsTokenCount
		e.ToolTokenCount = usage.ToolUsePromptTokenCount
		e.TotalTokenCount = usage.TotalTokenCount
	}
	return e
}

func (e *ApiResponseEvent) EventName() string { return EventNameApiResponse }

func (e *ApiResponseEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("model", e.Model).
		Int64("duration_ms", e.DurationMs).
		Int("total_token_count", e.TotalTokenCount)
}

var _ Event = &StartSessionEvent{}
var _ Event = &EndSessionEvent{}
var _ Event = &UserPromptEvent{}
var _ Event = &ToolCallEvent{}
var _ Event = &ApiRequestEvent{}
var _ Event = &ApiErrorEvent{}
var _ Event = &ApiResponseEvent{}
