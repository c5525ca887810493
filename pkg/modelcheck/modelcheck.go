package modelcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// AuthType identifies how the user authenticates to a backend.
type AuthType string

const (
	AuthTypeGeminiAPIKey AuthType = "gemini-api-key"
	AuthTypeOpenAICompat AuthType = "openai-compat"
)

const (
	DefaultGeminiModel  = "gemini-2.5-pro"
	FallbackGeminiModel = "gemini-2.5-flash"

	defaultEndpoint = "https://generativelanguage.googleapis.com"
	defaultTimeout  = 2 * time.Second
)

// DefaultModelFor returns the default model associated with an auth type,
// or "" when the auth type has no probe profile.
func DefaultModelFor(authType AuthType) string {
	if authType == AuthTypeGeminiAPIKey {
		return DefaultGeminiModel
	}
	return ""
}

type CheckConfig struct {
	APIKey   string
	Model    string
	AuthType AuthType
	// BaseURL overrides the generativelanguage endpoint.
	BaseURL string
	// HTTPClient overrides the probe client.
	HTTPClient *http.Client
	// Timeout bounds the probe; defaults to 2 seconds.
	Timeout time.Duration
}

type probeRequest struct {
	Contents         []probeContent        `json:"contents"`
	GenerationConfig probeGenerationConfig `json:"generationConfig"`
}

type probeContent struct {
	Parts []probePart `json:"parts"`
}

type probePart struct {
	Text string `json:"text"`
}

type probeGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

// GetEffectiveModel returns the model the session should start with.
//
// The configured model is probed only when it equals the auth type's default,
// so an explicit model choice is always respected. A rate-limited default
// (HTTP 429) resolves to the fallback model. Every other outcome, including
// probe errors and timeouts, returns the configured model unchanged. The
// function never returns an error and never panics.
func GetEffectiveModel(ctx context.Context, cfg CheckConfig) string {
	if cfg.Model != DefaultModelFor(cfg.AuthType) || cfg.Model == "" {
		return cfg.Model
	}
	if cfg.APIKey == "" {
		return cfg.Model
	}

	if probeIsRateLimited(ctx, cfg) {
		log.Info().
			Str("configured", cfg.Model).
			Str("fallback", FallbackGeminiModel).
			Msg("default model is rate limited, switching to fallback")
		return FallbackGeminiModel
	}

	return cfg.Model
}

// probeIsRateLimited sends a minimal one-token generation request and reports
// whether the backend answered with HTTP 429. All failures count as "not rate
// limited" so the caller keeps the configured model.
func probeIsRateLimited(ctx context.Context, cfg CheckConfig) (rateLimited bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("model availability probe panicked")
			rateLimited = false
		}
	}()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(probeRequest{
		Contents: []probeContent{
			{Parts: []probePart{{Text: "test"}}},
		},
		GenerationConfig: probeGenerationConfig{MaxOutputTokens: 1},
	})
	if err != nil {
		return false
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	url := endpoint + "/v1beta/models/" + cfg.Model + ":generateContent"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		log.Debug().Err(err).Msg("failed to build model availability probe")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("model availability probe failed")
		return false
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Debug().Int("status", resp.StatusCode).Str("model", cfg.Model).Msg("model availability probe answered")
	return resp.StatusCode == http.StatusTooManyRequests
}
