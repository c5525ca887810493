package events

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeContent carries user-facing model text for one stream chunk.
	EventTypeContent EventType = "content"
	// EventTypeThought carries parsed model reasoning (subject + description).
	EventTypeThought EventType = "thought"

	// Tool lifecycle: the model requested a call, the scheduler asked for
	// confirmation, the scheduler produced a terminal response.
	EventTypeToolCallRequest      EventType = "tool-call-request"
	EventTypeToolCallConfirmation EventType = "tool-call-confirmation"
	EventTypeToolCallResponse     EventType = "tool-call-response"

	// Terminal events of a turn.
	EventTypeUserCancelled EventType = "user-cancelled"
	EventTypeError         EventType = "error"
	EventTypeFinished      EventType = "finished"
)

// UndefinedToolName is the sentinel substituted when a provider omits the
// function name on a tool call.
const UndefinedToolName = "undefined_tool_name"

// ToolCallRequest is an immutable record of a model-requested tool
// invocation. CallID is unique within its turn; IsClientInitiated marks
// calls injected by the client rather than requested by the model.
type ToolCallRequest struct {
	CallID            string         `json:"call_id"`
	Name              string         `json:"name"`
	Args              map[string]any `json:"args"`
	IsClientInitiated bool           `json:"is_client_initiated,omitempty"`
}

func (tc ToolCallRequest) MarshalZerologObject(e *zerolog.Event) {
	e.Str("call_id", tc.CallID).Str("name", tc.Name).Int("arg_count", len(tc.Args))
}

// ToolCallResponse is the scheduler-produced answer to one request. CallID
// always equals the originating request's CallID.
type ToolCallResponse struct {
	CallID        string            `json:"call_id"`
	ResponseParts []generation.Part `json:"response_parts,omitempty"`
	ResultDisplay string            `json:"result_display,omitempty"`
	Error         string            `json:"error,omitempty"`
}

func (tr ToolCallResponse) MarshalZerologObject(e *zerolog.Event) {
	e.Str("call_id", tr.CallID).Int("part_count", len(tr.ResponseParts))
	if tr.Error != "" {
		e.Str("error", tr.Error)
	}
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON retained when the event was deserialized (see NewEventFromJson)
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

// EventContent carries one chunk's worth of plain model text.
type EventContent struct {
	EventImpl
	Text string `json:"text"`
}

func NewContentEvent(metadata EventMetadata, text string) *EventContent {
	return &EventContent{
		EventImpl: EventImpl{
			Type_:     EventTypeContent,
			Metadata_: metadata,
		},
		Text: text,
	}
}

var _ Event = &EventContent{}

// EventThought carries a parsed reasoning fragment: a short bolded subject
// plus free-text description.
type EventThought struct {
	EventImpl
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

func NewThoughtEvent(metadata EventMetadata, subject, description string) *EventThought {
	return &EventThought{
		EventImpl: EventImpl{
			Type_:     EventTypeThought,
			Metadata_: metadata,
		},
		Subject:     subject,
		Description: description,
	}
}

var _ Event = &EventThought{}

type EventToolCallRequest struct {
	EventImpl
	ToolCall ToolCallRequest `json:"tool_call"`
}

func NewToolCallRequestEvent(metadata EventMetadata, toolCall ToolCallRequest) *EventToolCallRequest {
	return &EventToolCallRequest{
		EventImpl: EventImpl{
			Type_:     EventTypeToolCallRequest,
			Metadata_: metadata,
		},
		ToolCall: toolCall,
	}
}

var _ Event = &EventToolCallRequest{}

// EventToolCallConfirmation is published when a tool call is waiting for a
// user decision, so observers can render the pending prompt.
type EventToolCallConfirmation struct {
	EventImpl
	ToolCall    ToolCallRequest `json:"tool_call"`
	Kind        string          `json:"kind,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
}

func NewToolCallConfirmationEvent(metadata EventMetadata, toolCall ToolCallRequest, kind, title, description string) *EventToolCallConfirmation {
	return &EventToolCallConfirmation{
		EventImpl: EventImpl{
			Type_:     EventTypeToolCallConfirmation,
			Metadata_: metadata,
		},
		ToolCall:    toolCall,
		Kind:        kind,
		Title:       title,
		Description: description,
	}
}

var _ Event = &EventToolCallConfirmation{}

type EventToolCallResponse struct {
	EventImpl
	ToolCall ToolCallResponse `json:"tool_call"`
}

func NewToolCallResponseEvent(metadata EventMetadata, toolCall ToolCallResponse) *EventToolCallResponse {
	return &EventToolCallResponse{
		EventImpl: EventImpl{
			Type_:     EventTypeToolCallResponse,
			Metadata_: metadata,
		},
		ToolCall: toolCall,
	}
}

var _ Event = &EventToolCallResponse{}

// EventUserCancelled terminates a turn whose cancellation signal fired before
// the next chunk was processed.
type EventUserCancelled struct {
	EventImpl
}

func NewUserCancelledEvent(metadata EventMetadata) *EventUserCancelled {
	return &EventUserCancelled{
		EventImpl: EventImpl{
			Type_:     EventTypeUserCancelled,
			Metadata_: metadata,
		},
	}
}

var _ Event = &EventUserCancelled{}

// EventError is the terminal event for a turn whose provider stream failed
// with a non-auth error. Status carries the HTTP status when one was
// observed.
type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
	Status      *int   `json:"status,omitempty"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	ev := &EventError{
		EventImpl: EventImpl{
			Type_:     EventTypeError,
			Metadata_: metadata,
		},
		ErrorString: err.Error(),
	}
	if code := generation.StatusCodeOf(err); code != 0 {
		ev.Status = &code
	}
	return ev
}

var _ Event = &EventError{}

// EventFinished closes a successful turn with the provider's finish reason.
type EventFinished struct {
	EventImpl
	Reason generation.FinishReason `json:"reason,omitempty"`
}

func NewFinishedEvent(metadata EventMetadata, reason generation.FinishReason) *EventFinished {
	return &EventFinished{
		EventImpl: EventImpl{
			Type_:     EventTypeFinished,
			Metadata_: metadata,
		},
		Reason: reason,
	}
}

var _ Event = &EventFinished{}

// EventMetadata contains the correlation and accounting information passed
// along with every watermill message.
type EventMetadata struct {
	ID        uuid.UUID `json:"message_id" yaml:"message_id" mapstructure:"message_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty" mapstructure:"session_id"`
	TurnID    string    `json:"turn_id,omitempty" yaml:"turn_id,omitempty" mapstructure:"turn_id"`
	Model     string    `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`

	Usage      *generation.UsageMetadata `json:"usage,omitempty" yaml:"usage,omitempty" mapstructure:"usage"`
	DurationMs *int64                    `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty" mapstructure:"duration_ms"`

	// Extra carries provider-specific/context values
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:"extra"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.TurnID != "" {
		e.Str("turn_id", em.TurnID)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Usage != nil {
		e.Object("usage", em.Usage)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
	if len(em.Extra) > 0 {
		e.Dict("extra", zerolog.Dict().Fields(em.Extra))
	}
}

func NewEventFromJson(b []byte) (Event, error) {
	// First, read a minimal header to get the type.
	var hdr struct {
		Type EventType `json:"type"`
	}
	_ = json.Unmarshal(b, &hdr)

	// If an external decoder is registered, try it first.
	if hdr.Type != "" {
		if dec := lookupDecoder(hdr.Type); dec != nil {
			if ev, err := dec(b); err == nil && ev != nil {
				if setter, ok := ev.(interface{ SetPayload([]byte) }); ok {
					setter.SetPayload(b)
				}
				return ev, nil
			}
		}
	}

	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeContent:
		ret, ok := ToTypedEvent[EventContent](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventContent")
		}
		return ret, nil
	case EventTypeThought:
		ret, ok := ToTypedEvent[EventThought](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventThought")
		}
		return ret, nil
	case EventTypeToolCallRequest:
		ret, ok := ToTypedEvent[EventToolCallRequest](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventToolCallRequest")
		}
		return ret, nil
	case EventTypeToolCallConfirmation:
		ret, ok := ToTypedEvent[EventToolCallConfirmation](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventToolCallConfirmation")
		}
		return ret, nil
	case EventTypeToolCallResponse:
		ret, ok := ToTypedEvent[EventToolCallResponse](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventToolCallResponse")
		}
		return ret, nil
	case EventTypeUserCancelled:
		ret, ok := ToTypedEvent[EventUserCancelled](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventUserCancelled")
		}
		return ret, nil
	case EventTypeError:
		ret, ok := ToTypedEvent[EventError](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventError")
		}
		return ret, nil
	case EventTypeFinished:
		ret, ok := ToTypedEvent[EventFinished](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventFinished")
		}
		return ret, nil
	}

	return e, nil
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}
	if setter, ok := any(ret).(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(e.Payload())
	}

	return ret, true
}
