package settings

import (
	_ "embed"

	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/huandu/go-clone"
)

type APISettings struct {
	// APIKeys is keyed by "<api-type>-api-key"
	APIKeys map[string]string `yaml:"api_keys,omitempty" glazed.parameter:"*-api-key"`
	// BaseUrls is keyed by "<api-type>-base-url"
	BaseUrls map[string]string `yaml:"base_urls,omitempty" glazed.parameter:"*-base-url"`
}

func NewAPISettings() (*APISettings, error) {
	s := &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: map[string]string{},
	}

	p, err := NewAPIParameterLayer()
	if err != nil {
		return nil, err
	}
	err = p.InitializeStructFromParameterDefaults(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// APIKey returns the configured key for the given api type, or "".
func (s *APISettings) APIKey(apiType ApiType) string {
	return s.APIKeys[string(apiType)+"-api-key"]
}

// BaseURL returns the configured base URL for the given api type, or "".
func (s *APISettings) BaseURL(apiType ApiType) string {
	return s.BaseUrls[string(apiType)+"-base-url"]
}

func (s *APISettings) Clone() *APISettings {
	return clone.Clone(s).(*APISettings)
}

//go:embed "flags/api.yaml"
var apiFlagsYAML []byte

type APIParameterLayer struct {
	*layers.ParameterLayerImpl `yaml:",inline"`
}

const APISlug = "api"

func NewAPIParameterLayer(options ...layers.ParameterLayerOptions) (*APIParameterLayer, error) {
	ret, err := layers.NewParameterLayerFromYAML(apiFlagsYAML, options...)
	if err != nil {
		return nil, err
	}

	return &APIParameterLayer{
		ParameterLayerImpl: ret,
	}, nil
}
