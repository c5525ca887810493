package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Tool is a capability the assistant can invoke during a conversation.
// Implementations must be safe for concurrent use: the scheduler may run
// several executions of the same tool in parallel.
type Tool interface {
	// Name returns the identifier the model uses to call the tool.
	Name() string

	// Description is the human- and model-readable summary sent to providers.
	Description() string

	// Schema describes the tool's argument object as a JSON schema.
	Schema() *jsonschema.Schema

	// ShouldConfirmExecute inspects the arguments and returns a confirmation
	// request when the call needs user approval before running, or nil when
	// it can run immediately.
	ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*ConfirmationRequest, error)

	// Execute runs the tool. Soft failures (missing files, empty results) are
	// reported through the Result so the model can react; only genuine
	// execution faults return an error.
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Result is a finished tool execution.
type Result struct {
	// LLMContent goes back to the model as the function response payload.
	LLMContent string
	// ReturnDisplay is what the terminal shows the user. Often a shortened
	// or markdown-formatted variant of LLMContent.
	ReturnDisplay string
}

// ConfirmationKind classifies what a confirmation dialog is asking about.
type ConfirmationKind string

const (
	// ConfirmEdit asks before modifying files.
	ConfirmEdit ConfirmationKind = "edit"
	// ConfirmExec asks before running a shell command.
	ConfirmExec ConfirmationKind = "exec"
	// ConfirmFetch asks before fetching remote URLs.
	ConfirmFetch ConfirmationKind = "fetch"
	// ConfirmInfo asks before an action that only discloses information.
	ConfirmInfo ConfirmationKind = "info"
)

// ConfirmationRequest describes a pending tool call to the user so they can
// approve, modify or reject it. Only the fields matching Kind are set.
type ConfirmationRequest struct {
	Kind        ConfirmationKind
	Title       string
	Description string

	// Command is the shell command line for exec confirmations.
	Command string
	// Paths lists the files an edit confirmation would touch.
	Paths []string
	// URLs lists the addresses a fetch confirmation would contact.
	URLs []string
}

// DecodeArgs unmarshals a tool argument map into a typed struct via a JSON
// round trip, so schema property names and json tags stay in agreement.
func DecodeArgs(args map[string]interface{}, target interface{}) error {
	b, err := json.Marshal(args)
	if err != nil {
		return errors.Wrap(err, "failed to marshal arguments")
	}
	if err := json.Unmarshal(b, target); err != nil {
		return errors.Wrap(err, "failed to unmarshal arguments")
	}
	return nil
}
