package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-go-golems/jiminy/pkg/generation"
)

// ToolRegistry manages available tools with thread-safe operations
type ToolRegistry interface {
	RegisterTool(tool Tool) error
	GetTool(name string) (Tool, error)
	ListTools() []Tool
	UnregisterTool(name string) error

	// Thread-safe registry operations
	Clone() ToolRegistry
	Merge(other ToolRegistry) ToolRegistry
}

// InMemoryToolRegistry is a thread-safe in-memory implementation of ToolRegistry
type InMemoryToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewInMemoryToolRegistry creates a new in-memory tool registry
func NewInMemoryToolRegistry() *InMemoryToolRegistry {
	return &InMemoryToolRegistry{
		tools: make(map[string]Tool),
	}
}

// RegisterTool registers a new tool in the registry. Registering two tools
// under the same name is an error; unregister the old one first to replace it.
func (r *InMemoryToolRegistry) RegisterTool(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// GetTool retrieves a tool by name
func (r *InMemoryToolRegistry) GetTool(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}

	return tool, nil
}

// ListTools returns all registered tools, sorted by name so the declarations
// sent to a provider are stable across runs.
func (r *InMemoryToolRegistry) ListTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})

	return tools
}

// UnregisterTool removes a tool from the registry
func (r *InMemoryToolRegistry) UnregisterTool(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool not found: %s", name)
	}

	delete(r.tools, name)
	return nil
}

// Clone creates a copy of the registry. Tool values are shared, which is fine
// because tools are stateless.
func (r *InMemoryToolRegistry) Clone() ToolRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := NewInMemoryToolRegistry()
	for name, tool := range r.tools {
		cloned.tools[name] = tool
	}

	return cloned
}

// Merge creates a new registry that contains tools from both registries
// If there are conflicts, tools from the other registry take precedence
func (r *InMemoryToolRegistry) Merge(other ToolRegistry) ToolRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := NewInMemoryToolRegistry()

	// Add tools from this registry first
	for name, tool := range r.tools {
		merged.tools[name] = tool
	}

	// Add tools from other registry (may overwrite)
	for _, tool := range other.ListTools() {
		merged.tools[tool.Name()] = tool
	}

	return merged
}

// HasTool checks if a tool exists in the registry
func (r *InMemoryToolRegistry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Count returns the number of tools in the registry
func (r *InMemoryToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Declarations converts the registry's tools into the declaration list a
// generation request carries.
func Declarations(r ToolRegistry) []generation.ToolDeclaration {
	if r == nil {
		return nil
	}

	tools := r.ListTools()
	decls := make([]generation.ToolDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, generation.ToolDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}

	return decls
}

var _ ToolRegistry = (*InMemoryToolRegistry)(nil)
