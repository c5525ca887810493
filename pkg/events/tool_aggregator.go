package events

import "encoding/json"

// ToolEventEntry aggregates tool activity across request, confirmation and
// response events. It is keyed by the tool call ID.
type ToolEventEntry struct {
	ID        string
	Name      string
	Args      string
	Requested bool
	Confirmed bool
	Result    string
	Failed    bool
}

// ToolEventAggregator collects tool-related events into compact entries per
// tool call ID, in insertion order. UI layers render the entries after a
// turn completes.
type ToolEventAggregator struct {
	index   map[string]int
	entries []ToolEventEntry
}

// NewToolEventAggregator creates a new aggregator.
func NewToolEventAggregator() *ToolEventAggregator {
	return &ToolEventAggregator{
		index:   make(map[string]int),
		entries: make([]ToolEventEntry, 0, 4),
	}
}

// Reset clears the aggregator state.
func (a *ToolEventAggregator) Reset() {
	a.index = make(map[string]int)
	a.entries = a.entries[:0]
}

// Entries returns a snapshot of current entries in insertion order.
func (a *ToolEventAggregator) Entries() []ToolEventEntry {
	// Return a shallow copy to avoid external mutation
	out := make([]ToolEventEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Handle consumes an Event and updates entries when it is tool-related.
func (a *ToolEventAggregator) Handle(e Event) {
	switch ev := e.(type) {
	case *EventToolCallRequest:
		if ev.ToolCall.CallID == "" {
			return
		}
		idx := a.ensure(ev.ToolCall.CallID)
		a.entries[idx].Requested = true
		a.entries[idx].Name = ev.ToolCall.Name
		if len(ev.ToolCall.Args) > 0 {
			if b, err := json.Marshal(ev.ToolCall.Args); err == nil {
				a.entries[idx].Args = string(b)
			}
		}
	case *EventToolCallConfirmation:
		if ev.ToolCall.CallID == "" {
			return
		}
		idx := a.ensure(ev.ToolCall.CallID)
		a.entries[idx].Confirmed = true
		if ev.ToolCall.Name != "" {
			a.entries[idx].Name = ev.ToolCall.Name
		}
	case *EventToolCallResponse:
		if ev.ToolCall.CallID == "" {
			return
		}
		idx := a.ensure(ev.ToolCall.CallID)
		if ev.ToolCall.Error != "" {
			a.entries[idx].Result = ev.ToolCall.Error
			a.entries[idx].Failed = true
			return
		}
		a.entries[idx].Result = ev.ToolCall.ResultDisplay
	}
}

// Lines returns a compact, plain-text representation for each entry.
// UI layers can style these strings as needed.
func (a *ToolEventAggregator) Lines() []string {
	lines := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		name := e.Name
		if name == "" {
			name = e.ID
		}
		parts := make([]string, 0, 4)
		if e.Requested {
			parts = append(parts, "→ "+name)
		}
		if e.Confirmed {
			parts = append(parts, "? confirm")
		}
		if e.Result != "" {
			prefix := "← "
			if e.Failed {
				prefix = "✗ "
			}
			parts = append(parts, prefix+e.Result)
		}
		if e.Args != "" {
			parts = append(parts, e.Args)
		}
		lines = append(lines, joinWithDoubleSpace(parts))
	}
	return lines
}

func (a *ToolEventAggregator) ensure(id string) int {
	if idx, ok := a.index[id]; ok {
		return idx
	}
	idx := len(a.entries)
	a.index[id] = idx
	a.entries = append(a.entries, ToolEventEntry{ID: id})
	return idx
}

func joinWithDoubleSpace(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	totalLen := 0
	for _, p := range parts {
		totalLen += len(p)
	}
	// preallocate with some extra for separators
	b := make([]byte, 0, totalLen+2*(len(parts)-1))
	for i, p := range parts {
		if i > 0 {
			b = append(b, ' ', ' ')
		}
		b = append(b, p...)
	}
	return string(b)
}
