package settings

import (
	_ "embed"

	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/huandu/go-clone"
)

type ChatSettings struct {
	Model           *string  `yaml:"model,omitempty" glazed.parameter:"model"`
	ApiType         *ApiType `yaml:"api_type,omitempty" glazed.parameter:"api-type"`
	MaxOutputTokens *int     `yaml:"max_output_tokens,omitempty" glazed.parameter:"max-output-tokens"`
	Temperature     *float64 `yaml:"temperature,omitempty" glazed.parameter:"temperature"`
	TopP            *float64 `yaml:"top_p,omitempty" glazed.parameter:"top-p"`
	Stop            []string `yaml:"stop,omitempty" glazed.parameter:"stop"`
	Stream          bool     `yaml:"stream,omitempty" glazed.parameter:"stream"`
}

func NewChatSettings() (*ChatSettings, error) {
	s := &ChatSettings{
		Model:           nil,
		ApiType:         nil,
		MaxOutputTokens: nil,
		Temperature:     nil,
		TopP:            nil,
		Stop:            []string{},
		Stream:          true,
	}

	p, err := NewChatParameterLayer()
	if err != nil {
		return nil, err
	}
	err = p.InitializeStructFromParameterDefaults(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

//go:embed "flags/chat.yaml"
var chatFlagsYAML []byte

type ChatParameterLayer struct {
	*layers.ParameterLayerImpl `yaml:",inline"`
}

const ChatSlug = "chat"

func NewChatParameterLayer(options ...layers.ParameterLayerOptions) (*ChatParameterLayer, error) {
	ret, err := layers.NewParameterLayerFromYAML(chatFlagsYAML, options...)
	if err != nil {
		return nil, err
	}

	return &ChatParameterLayer{
		ParameterLayerImpl: ret,
	}, nil
}
