package settings

// ApiType selects which backend wire protocol a model is reached over.
type ApiType string

const (
	ApiTypeGemini    ApiType = "gemini"
	ApiTypeOpenAI    ApiType = "openai"
	ApiTypeMistral   ApiType = "mistral"
	ApiTypeAnyScale  ApiType = "anyscale"
	ApiTypeFireworks ApiType = "fireworks"
	ApiTypeOllama    ApiType = "ollama"
)

// IsOpenAICompatible reports whether the api type speaks the OpenAI
// chat-completions protocol (everything except the Gemini-native API).
func (a ApiType) IsOpenAICompatible() bool {
	switch a {
	case ApiTypeOpenAI, ApiTypeMistral, ApiTypeAnyScale, ApiTypeFireworks, ApiTypeOllama:
		return true
	default:
		return false
	}
}
