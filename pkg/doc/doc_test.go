package doc

import (
	"testing"

	"github.com/go-go-golems/glazed/pkg/help"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDocToHelpSystemLoadsTopics(t *testing.T) {
	hs := help.NewHelpSystem()
	require.NoError(t, AddDocToHelpSystem(hs))

	slugs := []string{
		"jiminy-chat",
		"jiminy-context-files",
		"jiminy-configuration",
		"jiminy-tokens",
	}

	for _, slug := range slugs {
		section, err := hs.GetSectionWithSlug(slug)
		require.NoError(t, err, "expected slug %q to load", slug)
		require.NotNil(t, section)
		assert.NotEmpty(t, section.Title)
		assert.NotEmpty(t, section.Content)
	}
}
