package factory

import (
	"testing"

	"github.com/go-go-golems/jiminy/pkg/generation/gemini"
	"github.com/go-go-golems/jiminy/pkg/generation/openaicompat"
	"github.com/go-go-golems/jiminy/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardGeneratorFactory_SupportedProviders(t *testing.T) {
	f := NewStandardGeneratorFactory()

	providers := f.SupportedProviders()

	assert.Contains(t, providers, string(settings.ApiTypeGemini))
	assert.Contains(t, providers, string(settings.ApiTypeOpenAI))
	assert.Contains(t, providers, string(settings.ApiTypeOllama))
	assert.NotEmpty(t, providers)
}

func TestStandardGeneratorFactory_DefaultProvider(t *testing.T) {
	f := NewStandardGeneratorFactory()

	assert.Equal(t, string(settings.ApiTypeGemini), f.DefaultProvider())
}

func TestStandardGeneratorFactory_CreateGenerator_NilSettings(t *testing.T) {
	f := NewStandardGeneratorFactory()

	g, err := f.CreateGenerator(nil)

	assert.Nil(t, g)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "settings cannot be nil")
}

func TestStandardGeneratorFactory_CreateGenerator_Gemini_Success(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s := createValidGeminiSettings(t)

	g, err := f.CreateGenerator(s)

	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.IsType(t, &gemini.GeminiGenerator{}, g)
}

func TestStandardGeneratorFactory_CreateGenerator_OpenAI_Success(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s := createValidOpenAISettings(t)

	g, err := f.CreateGenerator(s)

	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.IsType(t, &openaicompat.OpenAICompatGenerator{}, g)
}

func TestStandardGeneratorFactory_CreateGenerator_Ollama_NoKeyNeeded(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s, err := settings.NewSettings()
	require.NoError(t, err)
	ollamaType := settings.ApiTypeOllama
	s.Chat.ApiType = &ollamaType
	s.API.BaseUrls["ollama-base-url"] = "http://localhost:11434/v1"

	g, err := f.CreateGenerator(s)

	require.NoError(t, err)
	assert.IsType(t, &openaicompat.OpenAICompatGenerator{}, g)
}

func TestStandardGeneratorFactory_CreateGenerator_UnsupportedProvider(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s, err := settings.NewSettings()
	require.NoError(t, err)

	unsupportedProvider := settings.ApiType("unsupported")
	s.Chat.ApiType = &unsupportedProvider

	g, err := f.CreateGenerator(s)

	assert.Nil(t, g)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestStandardGeneratorFactory_CreateGenerator_MissingAPIKey(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s, err := settings.NewSettings()
	require.NoError(t, err)

	openaiType := settings.ApiTypeOpenAI
	s.Chat.ApiType = &openaiType
	// Don't set API key - this should cause a validation error

	g, err := f.CreateGenerator(s)

	assert.Nil(t, g)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}

func TestStandardGeneratorFactory_CreateGenerator_MissingBaseURL(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s, err := settings.NewSettings()
	require.NoError(t, err)

	mistralType := settings.ApiTypeMistral
	s.Chat.ApiType = &mistralType
	s.API.APIKeys["mistral-api-key"] = "test-api-key"

	g, err := f.CreateGenerator(s)

	assert.Nil(t, g)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing base URL")
}

func TestStandardGeneratorFactory_CreateGenerator_DefaultsToGemini(t *testing.T) {
	f := NewStandardGeneratorFactory()

	s := createValidGeminiSettings(t)
	// Don't set ApiType - should default to Gemini
	s.Chat.ApiType = nil

	g, err := f.CreateGenerator(s)

	require.NoError(t, err)
	assert.IsType(t, &gemini.GeminiGenerator{}, g)
}

// Helper function to create valid Gemini settings for testing
func createValidGeminiSettings(t *testing.T) *settings.Settings {
	s, err := settings.NewSettings()
	require.NoError(t, err)

	geminiType := settings.ApiTypeGemini
	s.Chat.ApiType = &geminiType
	s.API.APIKeys["gemini-api-key"] = "test-api-key"

	return s
}

// Helper function to create valid OpenAI settings for testing
func createValidOpenAISettings(t *testing.T) *settings.Settings {
	s, err := settings.NewSettings()
	require.NoError(t, err)

	openaiType := settings.ApiTypeOpenAI
	s.Chat.ApiType = &openaiType
	s.API.APIKeys["openai-api-key"] = "test-api-key"
	s.API.BaseUrls["openai-base-url"] = "https://api.openai.com/v1"

	return s
}
