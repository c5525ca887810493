package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/invopop/jsonschema"
	"github.com/mb0/glob"
)

// globIgnoreDirs are directory names a glob walk never descends into.
var globIgnoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	".idea":        true,
	"__pycache__":  true,
}

// GlobTool finds files whose path matches a glob pattern. Patterns use *
// wildcards that also cross directory separators, so "*.go" finds Go files
// at any depth.
type GlobTool struct{}

func NewGlobTool() *GlobTool {
	return &GlobTool{}
}

func (t *GlobTool) Name() string {
	return "glob"
}

func (t *GlobTool) Description() string {
	return "Finds files under a directory whose relative path matches a glob pattern. " +
		"The * wildcard also matches across directory separators."
}

func (t *GlobTool) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	props := jsonschema.NewProperties()
	props.Set("pattern", &jsonschema.Schema{
		Type:        "string",
		Description: "Glob pattern to match file paths against, e.g. *.go or cmd*main.go",
	})
	props.Set("path", &jsonschema.Schema{
		Type:        "string",
		Description: "Directory to search in (defaults to the current directory)",
	})
	schema.Properties = props
	schema.Required = []string{"pattern"}
	return schema
}

func (t *GlobTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*tools.ConfirmationRequest, error) {
	return nil, nil
}

type globArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	var in globArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	base := in.Path
	if base == "" {
		base = "."
	}

	// Validate the pattern up front so a bad one fails once, not per file.
	if _, err := glob.Match(in.Pattern, ""); err != nil {
		return errorResult(fmt.Sprintf("Error: invalid glob pattern %q: %v", in.Pattern, err)), nil
	}

	var matches []string
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != base && globIgnoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := glob.Match(in.Pattern, rel); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if walkErr != nil {
		return errorResult(fmt.Sprintf("Error: failed to search %s: %v", base, walkErr)), nil
	}

	if len(matches) == 0 {
		return &tools.Result{
			LLMContent:    fmt.Sprintf("No files matched pattern %q under %s.", in.Pattern, base),
			ReturnDisplay: fmt.Sprintf("No matches for %q", in.Pattern),
		}, nil
	}

	sort.Strings(matches)
	return &tools.Result{
		LLMContent: fmt.Sprintf("Found %d file(s) matching %q under %s:\n%s",
			len(matches), in.Pattern, base, strings.Join(matches, "\n")),
		ReturnDisplay: fmt.Sprintf("Found %d file(s) matching %q", len(matches), in.Pattern),
	}, nil
}

var _ tools.Tool = (*GlobTool)(nil)
