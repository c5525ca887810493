package scheduler

import (
	"time"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a scheduled tool call.
type Status string

const (
	StatusValidating           Status = "validating"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusScheduled            Status = "scheduled"
	StatusExecuting            Status = "executing"
	StatusSuccess              Status = "success"
	StatusError                Status = "error"
	StatusCancelled            Status = "cancelled"
)

// Terminal reports whether a call in this status is finished for good.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusCancelled:
		return true
	}
	return false
}

// ToolCall tracks one model-requested invocation from validation to its
// terminal status. Every call ends with a Response, rejected and cancelled
// ones included.
type ToolCall struct {
	Request  events.ToolCallRequest
	Status   Status
	Outcome  ConfirmationOutcome
	Response *events.ToolCallResponse

	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64

	tool tools.Tool
}

// transition moves the call to next unless it already reached a terminal
// status. A call finishes exactly once; late transitions are dropped.
func (c *ToolCall) transition(next Status) bool {
	if c.Status.Terminal() {
		log.Debug().
			Str("call_id", c.Request.CallID).
			Str("status", string(c.Status)).
			Str("attempted", string(next)).
			Msg("scheduler: ignoring transition on finished call")
		return false
	}
	c.Status = next
	return true
}

// recordOutcome stores the confirmation outcome once; it is immutable
// afterwards.
func (c *ToolCall) recordOutcome(outcome ConfirmationOutcome) {
	if c.Outcome != OutcomeUnspecified {
		log.Debug().
			Str("call_id", c.Request.CallID).
			Str("outcome", string(c.Outcome)).
			Str("attempted", string(outcome)).
			Msg("scheduler: ignoring second confirmation outcome")
		return
	}
	c.Outcome = outcome
}

// finish stamps the completion time. Duration stays zero for calls that
// never started executing.
func (c *ToolCall) finish() {
	c.CompletedAt = time.Now()
	if !c.StartedAt.IsZero() {
		c.DurationMs = c.CompletedAt.Sub(c.StartedAt).Milliseconds()
	}
}
