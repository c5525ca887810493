package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/invopop/jsonschema"
)

// previewLines caps how much of the old and new content a confirmation
// dialog shows.
const previewLines = 20

// WriteFileTool writes content to a file, creating parent directories as
// needed. Every write asks for confirmation with an old/new preview.
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool {
	return &WriteFileTool{}
}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing what is there. Parent directories are created when missing."
}

func (t *WriteFileTool) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	props := jsonschema.NewProperties()
	props.Set("path", &jsonschema.Schema{
		Type:        "string",
		Description: "Path to the file to write",
	})
	props.Set("content", &jsonschema.Schema{
		Type:        "string",
		Description: "Full content to write to the file",
	})
	schema.Properties = props
	schema.Required = []string{"path", "content"}
	return schema
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFileTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*tools.ConfirmationRequest, error) {
	var in writeFileArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	old := "(new file)"
	if data, err := os.ReadFile(in.Path); err == nil {
		old = previewOf(string(data))
	}

	description := fmt.Sprintf("--- current ---\n%s\n--- proposed ---\n%s", old, previewOf(in.Content))

	return &tools.ConfirmationRequest{
		Kind:        tools.ConfirmEdit,
		Title:       fmt.Sprintf("Write to %s", in.Path),
		Description: description,
		Paths:       []string{in.Path},
	}, nil
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	var in writeFileArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	existed := false
	if info, err := os.Stat(in.Path); err == nil {
		if info.IsDir() {
			return errorResult(fmt.Sprintf("Error: %s is a directory, not a file", in.Path)), nil
		}
		existed = true
	}

	if dir := filepath.Dir(in.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errorResult(fmt.Sprintf("Error: failed to create directory %s: %v", dir, err)), nil
		}
	}

	if err := os.WriteFile(in.Path, []byte(in.Content), 0o644); err != nil {
		return errorResult(fmt.Sprintf("Error: failed to write file %s: %v", in.Path, err)), nil
	}

	verb := "Created"
	if existed {
		verb = "Updated"
	}
	return &tools.Result{
		LLMContent:    fmt.Sprintf("%s %s (%d bytes)", verb, in.Path, len(in.Content)),
		ReturnDisplay: fmt.Sprintf("%s %s", verb, in.Path),
	}, nil
}

// previewOf shortens content for a confirmation dialog.
func previewOf(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= previewLines {
		return content
	}
	return strings.Join(lines[:previewLines], "\n") +
		fmt.Sprintf("\n... (%d more lines)", len(lines)-previewLines)
}

var _ tools.Tool = (*WriteFileTool)(nil)
