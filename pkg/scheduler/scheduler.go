package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxParallel bounds concurrent tool executions when no limit is
// configured.
const DefaultMaxParallel = 4

// Scheduler drives batches of tool call requests through validation,
// confirmation and execution. Confirmation prompts run sequentially so they
// do not interleave; approved calls execute in parallel up to maxParallel.
// Terminal events are published to the sinks carried by the context.
type Scheduler struct {
	registry    tools.ToolRegistry
	handler     ConfirmationHandler
	maxParallel int

	mu            sync.Mutex
	approveAll    bool
	approvedTools map[string]bool
}

type Option func(*Scheduler)

// WithMaxParallel bounds how many tool executions run concurrently.
func WithMaxParallel(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// NewScheduler builds a scheduler over a tool registry. A nil handler
// rejects every call that asks for confirmation.
func NewScheduler(registry tools.ToolRegistry, handler ConfirmationHandler, options ...Option) *Scheduler {
	s := &Scheduler{
		registry:      registry,
		handler:       handler,
		maxParallel:   DefaultMaxParallel,
		approvedTools: map[string]bool{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Schedule runs the whole batch of requests from one model turn. It returns
// exactly one terminal ToolCall per request, in request order; rejected and
// cancelled calls carry synthesized error responses. Cancellation is only
// honored before a call starts executing, a started call runs to completion
// and keeps its result.
func (s *Scheduler) Schedule(ctx context.Context, requests []events.ToolCallRequest) ([]*ToolCall, error) {
	calls := make([]*ToolCall, len(requests))
	for i, req := range requests {
		calls[i] = &ToolCall{Request: req, Status: StatusValidating}
	}

	for _, call := range calls {
		s.prepare(ctx, call)
	}

	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for _, call := range calls {
		if call.Status != StatusScheduled {
			continue
		}
		call := call
		g.Go(func() error {
			s.execute(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return calls, nil
}

// prepare validates one call and obtains its confirmation, leaving it either
// scheduled or terminal.
func (s *Scheduler) prepare(ctx context.Context, call *ToolCall) {
	name := call.Request.Name

	tool, err := s.registry.GetTool(name)
	if err != nil {
		s.fail(ctx, call, fmt.Sprintf("tool %q not found in registry", name))
		return
	}
	call.tool = tool

	if msg, ok := validateArgs(tool, call.Request.Args); !ok {
		s.fail(ctx, call, msg)
		return
	}

	if s.isPreApproved(name) {
		call.transition(StatusScheduled)
		return
	}

	req, err := tool.ShouldConfirmExecute(ctx, call.Request.Args)
	if err != nil {
		s.fail(ctx, call, fmt.Sprintf("confirmation check failed: %v", err))
		return
	}
	if req == nil {
		call.transition(StatusScheduled)
		return
	}

	call.transition(StatusAwaitingConfirmation)
	events.PublishEventToContext(ctx, events.NewToolCallConfirmationEvent(
		events.EventMetadata{ID: uuid.New()}, call.Request,
		string(req.Kind), req.Title, req.Description))

	if s.handler == nil {
		call.recordOutcome(OutcomeCancel)
		s.cancel(ctx, call, "user rejected tool call: no confirmation handler configured")
		return
	}

	result, err := s.handler.Confirm(ctx, call, req)
	if err != nil {
		call.recordOutcome(OutcomeCancel)
		s.cancel(ctx, call, fmt.Sprintf("confirmation failed: %v", err))
		return
	}
	call.recordOutcome(result.Outcome)

	switch result.Outcome.Decision() {
	case DecisionReject:
		s.cancel(ctx, call, "user rejected tool call")
	case DecisionModify:
		if result.ModifiedArgs != nil {
			call.Request.Args = result.ModifiedArgs
			if msg, ok := validateArgs(tool, call.Request.Args); !ok {
				s.fail(ctx, call, "modified "+msg)
				return
			}
		}
		call.transition(StatusScheduled)
	default:
		s.noteApproval(name, result.Outcome)
		call.transition(StatusScheduled)
	}
}

// execute runs one approved call to its terminal status.
func (s *Scheduler) execute(ctx context.Context, call *ToolCall) {
	if ctx.Err() != nil {
		s.cancel(ctx, call, "cancelled before execution")
		return
	}

	call.transition(StatusExecuting)
	call.StartedAt = time.Now()

	result, err := call.tool.Execute(ctx, call.Request.Args)
	if err != nil {
		s.fail(ctx, call, err.Error())
		return
	}
	s.succeed(ctx, call, result)
}

func (s *Scheduler) succeed(ctx context.Context, call *ToolCall, result *tools.Result) {
	if !call.transition(StatusSuccess) {
		return
	}
	call.finish()

	output := ""
	display := ""
	if result != nil {
		output = result.LLMContent
		display = result.ReturnDisplay
	}
	call.Response = &events.ToolCallResponse{
		CallID: call.Request.CallID,
		ResponseParts: []generation.Part{
			generation.NewFunctionResponsePart(generation.FunctionResponse{
				ID:       call.Request.CallID,
				Name:     call.Request.Name,
				Response: map[string]interface{}{"output": output},
			}),
		},
		ResultDisplay: display,
	}
	s.publishResponse(ctx, call)
}

func (s *Scheduler) fail(ctx context.Context, call *ToolCall, msg string) {
	s.complete(ctx, call, StatusError, msg)
}

func (s *Scheduler) cancel(ctx context.Context, call *ToolCall, msg string) {
	s.complete(ctx, call, StatusCancelled, msg)
}

func (s *Scheduler) complete(ctx context.Context, call *ToolCall, status Status, errMsg string) {
	if !call.transition(status) {
		return
	}
	call.finish()

	call.Response = &events.ToolCallResponse{
		CallID: call.Request.CallID,
		ResponseParts: []generation.Part{
			generation.NewFunctionResponsePart(generation.FunctionResponse{
				ID:       call.Request.CallID,
				Name:     call.Request.Name,
				Response: map[string]interface{}{"error": errMsg},
			}),
		},
		Error: errMsg,
	}
	s.publishResponse(ctx, call)
}

func (s *Scheduler) publishResponse(ctx context.Context, call *ToolCall) {
	events.PublishEventToContext(ctx, events.NewToolCallResponseEvent(
		events.EventMetadata{ID: uuid.New()}, *call.Response))
}

func (s *Scheduler) isPreApproved(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approveAll || s.approvedTools[name]
}

// noteApproval widens the allow-list for proceed-always outcomes so later
// calls skip their confirmation prompt.
func (s *Scheduler) noteApproval(name string, outcome ConfirmationOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch outcome {
	case OutcomeProceedAlways:
		s.approveAll = true
	case OutcomeProceedAlwaysTool, OutcomeProceedAlwaysServer:
		s.approvedTools[name] = true
	}
}

// validateArgs checks the argument object against the tool's schema and
// reports a joined description of every violation.
func validateArgs(tool tools.Tool, args map[string]interface{}) (string, bool) {
	schema := tool.Schema()
	if schema == nil {
		return "", true
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Sprintf("invalid tool schema: %v", err), false
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Sprintf("failed to validate arguments: %v", err), false
	}
	if !result.Valid() {
		var descriptions []string
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}
		return "invalid arguments: " + strings.Join(descriptions, "; "), false
	}
	return "", true
}
