package session

import (
	"testing"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userText(text string) generation.Content {
	return generation.NewUserContent(generation.NewTextPart(text))
}

func modelText(text string) generation.Content {
	return generation.NewModelContent(generation.NewTextPart(text))
}

func emptyModel() generation.Content {
	return generation.Content{Role: generation.RoleModel}
}

func TestCuratedDropsFailedExchange(t *testing.T) {
	h := NewHistory(
		userText("first question"),
		modelText("first answer"),
		userText("second question"),
		emptyModel(),
	)

	curated := h.Curated()
	require.Len(t, curated, 2)
	assert.Equal(t, "first question", curated[0].Text())
	assert.Equal(t, "first answer", curated[1].Text())

	assert.Equal(t, 4, h.Len(), "the comprehensive history keeps everything")
}

func TestCuratedKeepsFunctionCallOnlyOutput(t *testing.T) {
	h := NewHistory(
		userText("list files"),
		generation.NewModelContent(generation.NewFunctionCallPart(
			generation.FunctionCall{ID: "c1", Name: "list_directory", Args: map[string]any{"path": "."}},
		)),
	)

	curated := h.Curated()
	require.Len(t, curated, 2)
	require.Len(t, curated[1].Parts, 1)
	assert.NotNil(t, curated[1].Parts[0].FunctionCall)
}

func TestCuratedDropsWholeModelRunWhenOneEntryIsInvalid(t *testing.T) {
	h := NewHistory(
		userText("go"),
		modelText("thinking about it"),
		emptyModel(),
		userText("next"),
		modelText("fine"),
	)

	curated := h.Curated()
	require.Len(t, curated, 2)
	assert.Equal(t, "next", curated[0].Text())
	assert.Equal(t, "fine", curated[1].Text())
}

func TestCuratedPassesToolEntriesThrough(t *testing.T) {
	h := NewHistory(
		userText("run it"),
		generation.NewModelContent(generation.NewFunctionCallPart(
			generation.FunctionCall{ID: "c1", Name: "glob", Args: map[string]any{"pattern": "*.go"}},
		)),
		generation.NewToolContent(generation.NewFunctionResponsePart(
			generation.FunctionResponse{ID: "c1", Name: "glob", Response: map[string]any{"output": "main.go"}},
		)),
		modelText("found one file"),
	)

	curated := h.Curated()
	assert.Len(t, curated, 4)
}

func TestCuratedEmptyHistory(t *testing.T) {
	assert.Empty(t, NewHistory().Curated())
}

func TestAllReturnsACopy(t *testing.T) {
	h := NewHistory(userText("original"))
	all := h.All()
	all[0] = modelText("mutated")

	assert.Equal(t, "original", h.All()[0].Text())
}
