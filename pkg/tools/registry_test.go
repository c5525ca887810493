package tools

import (
	"context"
	"testing"

	"github.com/invopop/jsonschema"
)

type stubTool struct {
	name string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool " + s.name }

func (s *stubTool) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func (s *stubTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*ConfirmationRequest, error) {
	return nil, nil
}

func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	return &Result{LLMContent: s.name, ReturnDisplay: s.name}, nil
}

func TestRegisterTool_DuplicateNameIsAnError(t *testing.T) {
	reg := NewInMemoryToolRegistry()

	if err := reg.RegisterTool(&stubTool{name: "read_file"}); err != nil {
		t.Fatalf("first RegisterTool failed: %v", err)
	}
	if err := reg.RegisterTool(&stubTool{name: "read_file"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 tool after duplicate rejection, got %d", reg.Count())
	}
}

func TestRegisterTool_RejectsInvalidTools(t *testing.T) {
	reg := NewInMemoryToolRegistry()

	if err := reg.RegisterTool(nil); err == nil {
		t.Fatalf("expected nil tool to be rejected")
	}
	if err := reg.RegisterTool(&stubTool{name: ""}); err == nil {
		t.Fatalf("expected empty tool name to be rejected")
	}
}

func TestGetTool_NotFound(t *testing.T) {
	reg := NewInMemoryToolRegistry()

	_, err := reg.GetTool("missing")
	if err == nil {
		t.Fatalf("expected error for unknown tool")
	}
	if err.Error() != "tool not found: missing" {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestListTools_SortedByName(t *testing.T) {
	reg := NewInMemoryToolRegistry()
	for _, name := range []string{"web_fetch", "glob", "read_file"} {
		if err := reg.RegisterTool(&stubTool{name: name}); err != nil {
			t.Fatalf("RegisterTool(%s) failed: %v", name, err)
		}
	}

	listed := reg.ListTools()
	if len(listed) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(listed))
	}
	want := []string{"glob", "read_file", "web_fetch"}
	for i, tool := range listed {
		if tool.Name() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], tool.Name())
		}
	}
}

func TestUnregisterTool_AllowsReRegistration(t *testing.T) {
	reg := NewInMemoryToolRegistry()

	if err := reg.RegisterTool(&stubTool{name: "glob"}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}
	if err := reg.UnregisterTool("glob"); err != nil {
		t.Fatalf("UnregisterTool failed: %v", err)
	}
	if err := reg.UnregisterTool("glob"); err == nil {
		t.Fatalf("expected second UnregisterTool to fail")
	}
	if err := reg.RegisterTool(&stubTool{name: "glob"}); err != nil {
		t.Fatalf("re-registration after unregister failed: %v", err)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	reg := NewInMemoryToolRegistry()
	if err := reg.RegisterTool(&stubTool{name: "read_file"}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	cloned := reg.Clone()
	if err := reg.UnregisterTool("read_file"); err != nil {
		t.Fatalf("UnregisterTool failed: %v", err)
	}

	if _, err := cloned.GetTool("read_file"); err != nil {
		t.Fatalf("clone should still hold the tool: %v", err)
	}
}

func TestMerge_OtherTakesPrecedence(t *testing.T) {
	base := NewInMemoryToolRegistry()
	if err := base.RegisterTool(&stubTool{name: "glob"}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}
	if err := base.RegisterTool(&stubTool{name: "read_file"}); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	otherGlob := &stubTool{name: "glob"}
	other := NewInMemoryToolRegistry()
	if err := other.RegisterTool(otherGlob); err != nil {
		t.Fatalf("RegisterTool failed: %v", err)
	}

	merged := base.Merge(other)
	got, err := merged.GetTool("glob")
	if err != nil {
		t.Fatalf("GetTool failed: %v", err)
	}
	if got != Tool(otherGlob) {
		t.Fatalf("expected tool from other registry to win the conflict")
	}
	if _, err := merged.GetTool("read_file"); err != nil {
		t.Fatalf("merged registry lost a tool: %v", err)
	}
}

func TestDeclarations(t *testing.T) {
	reg := NewInMemoryToolRegistry()
	for _, name := range []string{"write_file", "glob"} {
		if err := reg.RegisterTool(&stubTool{name: name}); err != nil {
			t.Fatalf("RegisterTool(%s) failed: %v", name, err)
		}
	}

	decls := Declarations(reg)
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if decls[0].Name != "glob" || decls[1].Name != "write_file" {
		t.Fatalf("unexpected declaration order: %s, %s", decls[0].Name, decls[1].Name)
	}
	if decls[0].Description == "" || decls[0].Parameters == nil {
		t.Fatalf("declaration missing description or schema")
	}

	if got := Declarations(nil); got != nil {
		t.Fatalf("expected nil declarations for nil registry, got %v", got)
	}
}
