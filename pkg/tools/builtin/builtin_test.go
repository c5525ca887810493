package builtin

import (
	"testing"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaults(t *testing.T) {
	reg := tools.NewInMemoryToolRegistry()
	require.NoError(t, RegisterDefaults(reg))

	assert.Equal(t, 6, reg.Count())
	for _, name := range []string{
		"read_file", "write_file", "list_directory", "glob", "save_memory", "web_fetch",
	} {
		assert.True(t, reg.HasTool(name), "missing builtin %s", name)
	}

	// A second registration must collide.
	assert.Error(t, RegisterDefaults(reg))
}

func TestBuiltinSchemasDeclareRequiredFields(t *testing.T) {
	required := map[string][]string{
		"read_file":      {"path"},
		"write_file":     {"path", "content"},
		"list_directory": {"path"},
		"glob":           {"pattern"},
		"save_memory":    {"fact"},
		"web_fetch":      {"url"},
	}

	for _, tool := range DefaultTools() {
		schema := tool.Schema()
		require.NotNil(t, schema, "%s has no schema", tool.Name())
		assert.Equal(t, "object", schema.Type, "%s schema type", tool.Name())
		assert.Equal(t, required[tool.Name()], schema.Required, "%s required list", tool.Name())

		for _, field := range required[tool.Name()] {
			prop, ok := schema.Properties.Get(field)
			require.True(t, ok, "%s schema missing property %s", tool.Name(), field)
			assert.NotEmpty(t, prop.Description, "%s.%s needs a description", tool.Name(), field)
		}

		assert.NotEmpty(t, tool.Description(), "%s needs a description", tool.Name())
	}
}
