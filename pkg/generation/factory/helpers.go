package factory

import (
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/settings"
)

// NewGeneratorFromSettings creates a generator directly from settings.
// This is a convenience function that creates a StandardGeneratorFactory and
// uses it to create a generator.
func NewGeneratorFromSettings(s *settings.Settings) (generation.ContentGenerator, error) {
	f := NewStandardGeneratorFactory()
	return f.CreateGenerator(s)
}

// NewGeneratorFromParsedLayers creates a generator from parsed layers.
// This is a convenience function that:
// 1. Creates new settings
// 2. Updates them from the parsed layers
// 3. Creates and returns a generator
func NewGeneratorFromParsedLayers(parsedLayers *layers.ParsedLayers) (generation.ContentGenerator, error) {
	s, err := settings.NewSettingsFromParsedLayers(parsedLayers)
	if err != nil {
		return nil, err
	}

	return NewGeneratorFromSettings(s)
}
