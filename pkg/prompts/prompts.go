package prompts

import (
	"bytes"
	"runtime"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

// Params feeds the system prompt template. ContextContent is the assembled
// hierarchical memory; when empty the memory section is omitted entirely.
type Params struct {
	Cwd            string
	Platform       string
	Date           string
	ContextContent string
	ToolNames      []string
}

// NewParams fills the environment fields from the running process: platform
// from the Go runtime and today's date in a human-readable form.
func NewParams(cwd, contextContent string, toolNames []string) Params {
	return Params{
		Cwd:            cwd,
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		Date:           time.Now().Format("Monday, January 2, 2006"),
		ContextContent: contextContent,
		ToolNames:      toolNames,
	}
}

const systemPromptTemplate = `You are an interactive coding assistant running in the user's terminal.

# Core Mandates

- Read before you write: inspect the relevant files with your tools before proposing or making changes.
- Follow the conventions of the project you are working in; match its formatting, naming and structure.
- Never invent file contents, paths or APIs. When you are not sure, look it up with a tool.
- Keep output terse and concrete; it is rendered directly in a terminal.
- Explain destructive or surprising actions before taking them.

# Tool Use

You have the following tools available: {{ join ", " .ToolNames }}.
Prefer calling a tool over guessing about the state of the filesystem or the network.
Some calls require the user's confirmation first; a rejected call is not an error, continue without it.

# Environment

- Working directory: {{ .Cwd }}
- Platform: {{ .Platform }}
- Today's date: {{ .Date }}
{{- if .ContextContent }}

---

{{ .ContextContent }}
{{- end }}
`

// Render produces the system instruction for a session.
func Render(params Params) (string, error) {
	t, err := template.New("system-prompt").Funcs(sprig.TxtFuncMap()).Parse(systemPromptTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse system prompt template")
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", errors.Wrap(err, "failed to render system prompt")
	}
	return buf.String(), nil
}
