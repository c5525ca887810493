package factory

import (
	"strings"

	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/generation/gemini"
	"github.com/go-go-golems/jiminy/pkg/generation/openaicompat"
	"github.com/go-go-golems/jiminy/pkg/settings"
	"github.com/pkg/errors"
)

// GeneratorFactory creates content generators based on provider settings.
// This interface allows external control over which backend is used without
// the calling code needing to know specific implementations.
type GeneratorFactory interface {
	// CreateGenerator creates a ContentGenerator based on the provided settings.
	// The actual provider is determined from settings.Chat.ApiType.
	// Returns an error if the provider is unsupported or configuration is invalid.
	CreateGenerator(s *settings.Settings) (generation.ContentGenerator, error)

	// SupportedProviders returns a list of provider names this factory supports.
	SupportedProviders() []string

	// DefaultProvider returns the name of the default provider used when
	// settings.Chat.ApiType is nil or not specified.
	DefaultProvider() string
}

// StandardGeneratorFactory is the default implementation of GeneratorFactory.
// Provider selection is based on settings.Chat.ApiType with fallback to Gemini.
type StandardGeneratorFactory struct{}

func NewStandardGeneratorFactory() *StandardGeneratorFactory {
	return &StandardGeneratorFactory{}
}

// CreateGenerator creates a ContentGenerator for the provider specified in
// settings.Chat.ApiType. If no ApiType is specified, defaults to Gemini.
// Supported providers: gemini, openai, mistral, anyscale, fireworks, ollama.
func (f *StandardGeneratorFactory) CreateGenerator(s *settings.Settings) (generation.ContentGenerator, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}

	provider := f.DefaultProvider()
	if s.Chat != nil && s.Chat.ApiType != nil {
		provider = strings.ToLower(string(*s.Chat.ApiType))
	}

	if err := f.validateSettings(s, provider); err != nil {
		return nil, errors.Wrapf(err, "invalid settings for provider %s", provider)
	}

	apiType := settings.ApiType(provider)
	apiKey := s.API.APIKey(apiType)
	baseURL := s.API.BaseURL(apiType)

	switch provider {
	case string(settings.ApiTypeGemini):
		options := []gemini.Option{gemini.WithAPIKey(apiKey)}
		if baseURL != "" {
			options = append(options, gemini.WithBaseURL(baseURL))
		}
		return gemini.NewGeminiGenerator(options...)

	case string(settings.ApiTypeOpenAI), string(settings.ApiTypeMistral),
		string(settings.ApiTypeAnyScale), string(settings.ApiTypeFireworks),
		string(settings.ApiTypeOllama):
		if provider == string(settings.ApiTypeOllama) && apiKey == "" {
			// Ollama servers do not check the bearer token, but the client
			// requires one.
			apiKey = "ollama"
		}
		options := []openaicompat.Option{openaicompat.WithAPIKey(apiKey)}
		if baseURL != "" {
			options = append(options, openaicompat.WithBaseURL(baseURL))
		}
		return openaicompat.NewOpenAICompatGenerator(options...)

	default:
		supported := strings.Join(f.SupportedProviders(), ", ")
		return nil, errors.Errorf("unsupported provider %s. Supported providers: %s", provider, supported)
	}
}

// SupportedProviders returns the list of providers this factory can create generators for.
func (f *StandardGeneratorFactory) SupportedProviders() []string {
	return []string{
		string(settings.ApiTypeGemini),
		string(settings.ApiTypeOpenAI),
		string(settings.ApiTypeMistral),
		string(settings.ApiTypeAnyScale),
		string(settings.ApiTypeFireworks),
		string(settings.ApiTypeOllama),
	}
}

// DefaultProvider returns the default provider name used when no ApiType is specified.
func (f *StandardGeneratorFactory) DefaultProvider() string {
	return string(settings.ApiTypeGemini)
}

// validateSettings performs basic validation of settings for the specified provider.
func (f *StandardGeneratorFactory) validateSettings(s *settings.Settings, provider string) error {
	if s.Chat == nil {
		return errors.New("chat settings cannot be nil")
	}

	if s.API == nil {
		return errors.New("API settings cannot be nil")
	}

	switch provider {
	case string(settings.ApiTypeGemini):
		return f.validateGeminiSettings(s)

	case string(settings.ApiTypeOpenAI), string(settings.ApiTypeMistral),
		string(settings.ApiTypeAnyScale), string(settings.ApiTypeFireworks),
		string(settings.ApiTypeOllama):
		return f.validateOpenAICompatSettings(s, provider)

	default:
		return errors.Errorf("unknown provider %s", provider)
	}
}

// validateGeminiSettings validates settings required for the Gemini provider.
func (f *StandardGeneratorFactory) validateGeminiSettings(s *settings.Settings) error {
	apiKeyName := string(settings.ApiTypeGemini) + "-api-key"
	if _, ok := s.API.APIKeys[apiKeyName]; !ok {
		return errors.Errorf("missing API key %s", apiKeyName)
	}

	// Base URL is optional, the SDK has a default endpoint.
	return nil
}

// validateOpenAICompatSettings validates settings for OpenAI-compatible providers.
func (f *StandardGeneratorFactory) validateOpenAICompatSettings(s *settings.Settings, provider string) error {
	// Ollama needs no key, only a server address.
	if provider != string(settings.ApiTypeOllama) {
		apiKeyName := provider + "-api-key"
		if _, ok := s.API.APIKeys[apiKeyName]; !ok {
			return errors.Errorf("missing API key %s", apiKeyName)
		}
	}

	// Base URL is optional for OpenAI (uses default), but required for others.
	if provider != string(settings.ApiTypeOpenAI) {
		baseURLName := provider + "-base-url"
		if _, ok := s.API.BaseUrls[baseURLName]; !ok {
			return errors.Errorf("missing base URL %s for provider %s", baseURLName, provider)
		}
	}

	return nil
}

// Compile-time check that StandardGeneratorFactory implements GeneratorFactory
var _ GeneratorFactory = (*StandardGeneratorFactory)(nil)
