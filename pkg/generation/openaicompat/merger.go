package openaicompat

import (
	"sort"

	go_openai "github.com/sashabaranov/go-openai"
)

// ToolCallMerger reassembles tool calls that arrive fragmented across
// streaming chunks. Deltas are keyed by the call's index; the id and name
// usually arrive on the first fragment, the arguments accumulate across
// fragments.
type ToolCallMerger struct {
	toolCalls map[int]go_openai.ToolCall
}

func NewToolCallMerger() *ToolCallMerger {
	return &ToolCallMerger{
		toolCalls: make(map[int]go_openai.ToolCall),
	}
}

func (tcm *ToolCallMerger) AddToolCalls(toolCalls []go_openai.ToolCall) {
	for _, call := range toolCalls {
		index := 0
		if call.Index != nil {
			index = *call.Index
		}
		if existing, found := tcm.toolCalls[index]; found {
			if existing.ID == "" {
				existing.ID = call.ID
			}
			existing.Function.Name += call.Function.Name
			existing.Function.Arguments += call.Function.Arguments
			tcm.toolCalls[index] = existing
		} else {
			tcm.toolCalls[index] = call
		}
	}
}

// GetToolCalls returns the reconstructed calls ordered by index.
func (tcm *ToolCallMerger) GetToolCalls() []go_openai.ToolCall {
	indexes := make([]int, 0, len(tcm.toolCalls))
	for idx := range tcm.toolCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	result := make([]go_openai.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		result = append(result, tcm.toolCalls[idx])
	}
	return result
}

// Len reports the number of distinct tool calls seen so far.
func (tcm *ToolCallMerger) Len() int {
	return len(tcm.toolCalls)
}
