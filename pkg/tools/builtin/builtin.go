// Package builtin provides the tools the assistant ships with: file
// inspection and editing, directory search, long-term memory and web access.
package builtin

import (
	"github.com/go-go-golems/jiminy/pkg/tools"
)

// DefaultTools returns a fresh instance of every builtin tool.
func DefaultTools() []tools.Tool {
	return []tools.Tool{
		NewReadFileTool(),
		NewWriteFileTool(),
		NewListDirectoryTool(),
		NewGlobTool(),
		NewSaveMemoryTool(),
		NewWebFetchTool(),
	}
}

// RegisterDefaults adds every builtin tool to the registry.
func RegisterDefaults(reg tools.ToolRegistry) error {
	for _, tool := range DefaultTools() {
		if err := reg.RegisterTool(tool); err != nil {
			return err
		}
	}
	return nil
}
