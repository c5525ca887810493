package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/invopop/jsonschema"
)

// defaultReadLimit caps how many lines a single read returns when the model
// does not ask for a window.
const defaultReadLimit = 2000

// ReadFileTool reads a file from the local filesystem, with optional
// line-based pagination for large files.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool {
	return &ReadFileTool{}
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Reads a file from the local filesystem and returns its content. " +
		"For large files, use offset and limit to read a window of lines."
}

func (t *ReadFileTool) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	props := jsonschema.NewProperties()
	props.Set("path", &jsonschema.Schema{
		Type:        "string",
		Description: "Path to the file to read",
	})
	props.Set("offset", &jsonschema.Schema{
		Type:        "integer",
		Description: "Line number to start reading from (0-based)",
	})
	props.Set("limit", &jsonschema.Schema{
		Type:        "integer",
		Description: "Maximum number of lines to read",
	})
	schema.Properties = props
	schema.Required = []string{"path"}
	return schema
}

func (t *ReadFileTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*tools.ConfirmationRequest, error) {
	return nil, nil
}

type readFileArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	var in readFileArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	info, err := os.Stat(in.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: failed to read file %s: %v", in.Path, err)), nil
	}
	if info.IsDir() {
		return errorResult(fmt.Sprintf("Error: %s is a directory, not a file", in.Path)), nil
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: failed to read file %s: %v", in.Path, err)), nil
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	offset := in.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return errorResult(fmt.Sprintf("Error: offset %d is past the end of %s (%d lines)", in.Offset, in.Path, total)), nil
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	end := offset + limit
	truncated := end < total
	if end > total {
		end = total
	}

	content := strings.Join(lines[offset:end], "\n")
	if truncated || offset > 0 {
		content += fmt.Sprintf("\n[showing lines %d-%d of %d]", offset+1, end, total)
	}

	return &tools.Result{
		LLMContent:    content,
		ReturnDisplay: fmt.Sprintf("Read %d lines from %s", end-offset, in.Path),
	}, nil
}

// errorResult wraps a soft failure so the model can see it and recover.
func errorResult(msg string) *tools.Result {
	return &tools.Result{
		LLMContent:    msg,
		ReturnDisplay: msg,
	}
}

var _ tools.Tool = (*ReadFileTool)(nil)
