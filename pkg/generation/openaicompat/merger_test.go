package openaicompat

import (
	"testing"

	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func TestToolCallMergerReassemblesFragments(t *testing.T) {
	merger := NewToolCallMerger()

	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), ID: "call_abc", Type: go_openai.ToolTypeFunction,
			Function: go_openai.FunctionCall{Name: "read_file", Arguments: ""}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), Function: go_openai.FunctionCall{Arguments: `{"path":`}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), Function: go_openai.FunctionCall{Arguments: `"main.go"}`}},
	})

	calls := merger.GetToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_abc", calls[0].ID)
	assert.Equal(t, "read_file", calls[0].Function.Name)
	assert.Equal(t, `{"path":"main.go"}`, calls[0].Function.Arguments)
}

func TestToolCallMergerParallelCallsOrderedByIndex(t *testing.T) {
	merger := NewToolCallMerger()

	// second call's fragments arrive first
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(1), ID: "call_b", Function: go_openai.FunctionCall{Name: "glob", Arguments: `{"pattern":"*.go"}`}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), ID: "call_a", Function: go_openai.FunctionCall{Name: "read_file", Arguments: `{"path":"a.go"}`}},
	})

	calls := merger.GetToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "call_a", calls[0].ID)
	assert.Equal(t, "call_b", calls[1].ID)
}

func TestToolCallMergerNilIndexTreatedAsZero(t *testing.T) {
	merger := NewToolCallMerger()

	merger.AddToolCalls([]go_openai.ToolCall{
		{ID: "call_x", Function: go_openai.FunctionCall{Name: "list_"}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Function: go_openai.FunctionCall{Name: "directory"}},
	})

	calls := merger.GetToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_x", calls[0].ID)
	assert.Equal(t, "list_directory", calls[0].Function.Name)
}

func TestToolCallMergerKeepsFirstID(t *testing.T) {
	merger := NewToolCallMerger()

	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), ID: "call_first", Function: go_openai.FunctionCall{Name: "glob"}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), ID: "call_second", Function: go_openai.FunctionCall{Arguments: "{}"}},
	})

	calls := merger.GetToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_first", calls[0].ID)
}

func TestToolCallMergerEmpty(t *testing.T) {
	merger := NewToolCallMerger()
	assert.Empty(t, merger.GetToolCalls())
	assert.Equal(t, 0, merger.Len())
}
