package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/memory"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/invopop/jsonschema"
)

// SaveMemoryTool persists a fact the user wants remembered across sessions.
// Facts land in the global memory file unless a target file is configured.
type SaveMemoryTool struct {
	path string
}

type SaveMemoryOption func(*SaveMemoryTool)

// WithMemoryFile redirects saved facts to a specific file instead of the
// global memory file.
func WithMemoryFile(path string) SaveMemoryOption {
	return func(t *SaveMemoryTool) {
		t.path = path
	}
}

func NewSaveMemoryTool(options ...SaveMemoryOption) *SaveMemoryTool {
	t := &SaveMemoryTool{}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *SaveMemoryTool) Name() string {
	return "save_memory"
}

func (t *SaveMemoryTool) Description() string {
	return "Saves a specific fact to long-term memory so it is available in future sessions. " +
		"Use it when the user asks you to remember something."
}

func (t *SaveMemoryTool) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	props := jsonschema.NewProperties()
	props.Set("fact", &jsonschema.Schema{
		Type:        "string",
		Description: "The fact to remember, phrased as a complete sentence",
	})
	schema.Properties = props
	schema.Required = []string{"fact"}
	return schema
}

func (t *SaveMemoryTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*tools.ConfirmationRequest, error) {
	return nil, nil
}

type saveMemoryArgs struct {
	Fact string `json:"fact"`
}

func (t *SaveMemoryTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	var in saveMemoryArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	fact := strings.TrimSpace(in.Fact)
	if fact == "" {
		return errorResult("Error: fact must not be empty"), nil
	}

	if err := memory.SaveTo(t.path, fact); err != nil {
		return errorResult(fmt.Sprintf("Error: failed to save memory: %v", err)), nil
	}

	return &tools.Result{
		LLMContent:    fmt.Sprintf("Saved memory: %q", fact),
		ReturnDisplay: fmt.Sprintf("Saved memory: %q", fact),
	}, nil
}

var _ tools.Tool = (*SaveMemoryTool)(nil)
