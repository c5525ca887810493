package session

import (
	"github.com/go-go-golems/jiminy/pkg/generation"
)

// History is the ordered record of a conversation. It keeps everything that
// happened (the comprehensive view) and can derive a curated view that a
// request can be built from.
type History struct {
	entries []generation.Content
}

func NewHistory(initial ...generation.Content) *History {
	h := &History{}
	h.entries = append(h.entries, initial...)
	return h
}

func (h *History) Add(content generation.Content) {
	h.entries = append(h.entries, content)
}

func (h *History) Len() int {
	return len(h.entries)
}

// All returns a copy of the comprehensive history.
func (h *History) All() []generation.Content {
	out := make([]generation.Content, len(h.entries))
	copy(out, h.entries)
	return out
}

// Curated returns the history with failed exchanges removed: a run of model
// entries containing an invalid one is dropped together with the
// immediately preceding input entry. Recording an empty model output after
// a failed turn is what marks an exchange for removal here.
func (h *History) Curated() []generation.Content {
	var curated []generation.Content
	i := 0
	for i < len(h.entries) {
		entry := h.entries[i]
		if entry.Role != generation.RoleModel {
			curated = append(curated, entry)
			i++
			continue
		}

		valid := true
		var block []generation.Content
		for i < len(h.entries) && h.entries[i].Role == generation.RoleModel {
			block = append(block, h.entries[i])
			if valid && !isValidModelContent(h.entries[i]) {
				valid = false
			}
			i++
		}
		if valid {
			curated = append(curated, block...)
		} else if len(curated) > 0 {
			curated = curated[:len(curated)-1]
		}
	}
	return curated
}

// isValidModelContent reports whether a model entry carries anything the
// model actually said. An entry with no parts, or with a part that is
// neither text, reasoning nor function traffic, is the marker of a failed
// turn.
func isValidModelContent(c generation.Content) bool {
	if len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionCall != nil || p.FunctionResponse != nil {
			continue
		}
		if p.Text == "" && !p.Thought {
			return false
		}
	}
	return true
}
