package builtin

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/invopop/jsonschema"
)

// ListDirectoryTool lists the entries of a directory, subdirectories first.
type ListDirectoryTool struct{}

func NewListDirectoryTool() *ListDirectoryTool {
	return &ListDirectoryTool{}
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) Description() string {
	return "Lists the files and subdirectories directly inside a directory."
}

func (t *ListDirectoryTool) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	props := jsonschema.NewProperties()
	props.Set("path", &jsonschema.Schema{
		Type:        "string",
		Description: "Path to the directory to list",
	})
	schema.Properties = props
	schema.Required = []string{"path"}
	return schema
}

func (t *ListDirectoryTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*tools.ConfirmationRequest, error) {
	return nil, nil
}

type listDirectoryArgs struct {
	Path string `json:"path"`
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	var in listDirectoryArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(in.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: failed to list directory %s: %v", in.Path, err)), nil
	}

	if len(entries) == 0 {
		return &tools.Result{
			LLMContent:    fmt.Sprintf("Directory %s is empty.", in.Path),
			ReturnDisplay: fmt.Sprintf("Listed 0 entries in %s", in.Path),
		}, nil
	}

	// Directories first, each group alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Directory listing for %s:\n", in.Path)
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "[dir] %s/\n", entry.Name())
		} else {
			fmt.Fprintf(&sb, "%s\n", entry.Name())
		}
	}

	return &tools.Result{
		LLMContent:    strings.TrimRight(sb.String(), "\n"),
		ReturnDisplay: fmt.Sprintf("Listed %d entries in %s", len(entries), in.Path),
	}, nil
}

var _ tools.Tool = (*ListDirectoryTool)(nil)
