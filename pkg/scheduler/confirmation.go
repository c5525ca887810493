package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/tools"
	input "github.com/tcnksm/go-input"
)

// ConfirmationOutcome is the user's answer to a confirmation prompt.
type ConfirmationOutcome string

const (
	OutcomeUnspecified         ConfirmationOutcome = ""
	OutcomeProceedOnce         ConfirmationOutcome = "proceed_once"
	OutcomeProceedAlways       ConfirmationOutcome = "proceed_always"
	OutcomeProceedAlwaysServer ConfirmationOutcome = "proceed_always_server"
	OutcomeProceedAlwaysTool   ConfirmationOutcome = "proceed_always_tool"
	OutcomeModifyWithEditor    ConfirmationOutcome = "modify_with_editor"
	OutcomeCancel              ConfirmationOutcome = "cancel"
)

// Decision is what an outcome means for the call: run it, run it with
// modified arguments, or drop it.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionModify Decision = "modify"
	DecisionReject Decision = "reject"
)

// Decision folds the outcome into the action taken on the call. Modified
// calls still execute, with the edited arguments.
func (o ConfirmationOutcome) Decision() Decision {
	switch o {
	case OutcomeCancel:
		return DecisionReject
	case OutcomeModifyWithEditor:
		return DecisionModify
	default:
		return DecisionAccept
	}
}

// ConfirmationResult is a handler's answer for one call. ModifiedArgs is
// only consulted for OutcomeModifyWithEditor.
type ConfirmationResult struct {
	Outcome      ConfirmationOutcome
	ModifiedArgs map[string]interface{}
}

// ConfirmationHandler decides what happens to a call that asked for user
// approval.
type ConfirmationHandler interface {
	Confirm(ctx context.Context, call *ToolCall, req *tools.ConfirmationRequest) (ConfirmationResult, error)
}

// AutoApproveHandler approves everything without prompting.
type AutoApproveHandler struct{}

func (AutoApproveHandler) Confirm(ctx context.Context, call *ToolCall, req *tools.ConfirmationRequest) (ConfirmationResult, error) {
	return ConfirmationResult{Outcome: OutcomeProceedAlways}, nil
}

// AutoEditHandler approves edit confirmations and hands everything else to
// the fallback handler. A nil fallback rejects.
type AutoEditHandler struct {
	Fallback ConfirmationHandler
}

func (h AutoEditHandler) Confirm(ctx context.Context, call *ToolCall, req *tools.ConfirmationRequest) (ConfirmationResult, error) {
	if req != nil && req.Kind == tools.ConfirmEdit {
		return ConfirmationResult{Outcome: OutcomeProceedOnce}, nil
	}
	if h.Fallback == nil {
		return ConfirmationResult{Outcome: OutcomeCancel}, nil
	}
	return h.Fallback.Confirm(ctx, call, req)
}

// CLIHandler prompts on the terminal with a yes/always/no/edit loop.
type CLIHandler struct {
	ui *input.UI
}

// NewCLIHandler builds an interactive handler. Nil reader/writer default to
// stdin and stderr so prompts do not mix with piped stdout.
func NewCLIHandler(reader io.Reader, writer io.Writer) *CLIHandler {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stderr
	}
	return &CLIHandler{
		ui: &input.UI{
			Reader: reader,
			Writer: writer,
		},
	}
}

func (h *CLIHandler) Confirm(ctx context.Context, call *ToolCall, req *tools.ConfirmationRequest) (ConfirmationResult, error) {
	query := fmt.Sprintf("\n%s\n%s\nAllow? [y]es once / [a]lways for this tool / [n]o / [e]dit arguments",
		req.Title, req.Description)

	answer, err := h.ui.Ask(query, &input.Options{
		Default:  "y",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch strings.ToLower(answer) {
			case "y", "a", "n", "e":
				return nil
			default:
				return fmt.Errorf("please enter 'y', 'a', 'n' or 'e'")
			}
		},
	})
	if err != nil {
		return ConfirmationResult{Outcome: OutcomeCancel}, err
	}

	switch strings.ToLower(answer) {
	case "a":
		return ConfirmationResult{Outcome: OutcomeProceedAlwaysTool}, nil
	case "n":
		return ConfirmationResult{Outcome: OutcomeCancel}, nil
	case "e":
		return h.editArgs(call)
	default:
		return ConfirmationResult{Outcome: OutcomeProceedOnce}, nil
	}
}

// editArgs asks for a replacement argument object, prefilled with the
// current arguments.
func (h *CLIHandler) editArgs(call *ToolCall) (ConfirmationResult, error) {
	current, err := json.Marshal(call.Request.Args)
	if err != nil {
		current = []byte("{}")
	}

	answer, err := h.ui.Ask("Modified arguments (JSON object)", &input.Options{
		Default:  string(current),
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			var m map[string]interface{}
			if err := json.Unmarshal([]byte(answer), &m); err != nil {
				return fmt.Errorf("not a valid JSON object: %v", err)
			}
			return nil
		},
	})
	if err != nil {
		return ConfirmationResult{Outcome: OutcomeCancel}, err
	}

	var modified map[string]interface{}
	if err := json.Unmarshal([]byte(answer), &modified); err != nil {
		return ConfirmationResult{Outcome: OutcomeCancel}, err
	}
	return ConfirmationResult{
		Outcome:      OutcomeModifyWithEditor,
		ModifiedArgs: modified,
	}, nil
}

var (
	_ ConfirmationHandler = AutoApproveHandler{}
	_ ConfirmationHandler = AutoEditHandler{}
	_ ConfirmationHandler = (*CLIHandler)(nil)
)
