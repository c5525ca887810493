package settings

import (
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Chat      *ChatSettings      `yaml:"chat,omitempty" glazed.layer:"chat"`
	API       *APISettings       `yaml:"api,omitempty" glazed.layer:"api"`
	Tools     *ToolSettings      `yaml:"tools,omitempty" glazed.layer:"tools"`
	Telemetry *TelemetrySettings `yaml:"telemetry,omitempty" glazed.layer:"telemetry"`
	Memory    *MemorySettings    `yaml:"memory,omitempty" glazed.layer:"memory"`
}

func NewSettings() (*Settings, error) {
	chat, err := NewChatSettings()
	if err != nil {
		return nil, err
	}
	api, err := NewAPISettings()
	if err != nil {
		return nil, err
	}
	tools, err := NewToolSettings()
	if err != nil {
		return nil, err
	}
	telemetry, err := NewTelemetrySettings()
	if err != nil {
		return nil, err
	}
	memory, err := NewMemorySettings()
	if err != nil {
		return nil, err
	}

	return &Settings{
		Chat:      chat,
		API:       api,
		Tools:     tools,
		Telemetry: telemetry,
		Memory:    memory,
	}, nil
}

func NewSettingsFromYAML(r io.Reader) (*Settings, error) {
	s, err := NewSettings()
	if err != nil {
		return nil, err
	}
	if err := yaml.NewDecoder(r).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateFromParsedLayers overlays values parsed from the command line,
// environment, profiles and config files onto the settings.
func (s *Settings) UpdateFromParsedLayers(parsedLayers *layers.ParsedLayers) error {
	err := parsedLayers.InitializeStruct(ChatSlug, s.Chat)
	if err != nil {
		return err
	}

	err = parsedLayers.InitializeStruct(APISlug, s.API)
	if err != nil {
		return err
	}

	err = parsedLayers.InitializeStruct(ToolsSlug, s.Tools)
	if err != nil {
		return err
	}

	err = parsedLayers.InitializeStruct(TelemetrySlug, s.Telemetry)
	if err != nil {
		return err
	}

	err = parsedLayers.InitializeStruct(MemorySlug, s.Memory)
	if err != nil {
		return err
	}

	return nil
}

func NewSettingsFromParsedLayers(parsedLayers *layers.ParsedLayers) (*Settings, error) {
	s, err := NewSettings()
	if err != nil {
		return nil, err
	}
	if err := s.UpdateFromParsedLayers(parsedLayers); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if s.Chat != nil {
		if s.Chat.Model != nil {
			metadata["model"] = *s.Chat.Model
		}
		if s.Chat.ApiType != nil {
			metadata["api-type"] = string(*s.Chat.ApiType)
		}
		if s.Chat.MaxOutputTokens != nil {
			metadata["max-output-tokens"] = *s.Chat.MaxOutputTokens
		}
		if s.Chat.Temperature != nil {
			metadata["temperature"] = *s.Chat.Temperature
		}
		if s.Chat.TopP != nil && *s.Chat.TopP != 1 {
			metadata["top-p"] = *s.Chat.TopP
		}
		if len(s.Chat.Stop) > 0 {
			metadata["stop"] = s.Chat.Stop
		}
		metadata["stream"] = s.Chat.Stream
	}

	if s.Tools != nil {
		if s.Tools.ApprovalMode != "" {
			metadata["approval-mode"] = s.Tools.ApprovalMode
		}
		if len(s.Tools.AllowedTools) > 0 {
			metadata["allowed-tools"] = s.Tools.AllowedTools
		}
	}

	if s.Telemetry != nil {
		metadata["usage-statistics-enabled"] = s.Telemetry.UsageStatisticsEnabled
	}

	return metadata
}

func (s *Settings) Clone() *Settings {
	return &Settings{
		Chat:      s.Chat.Clone(),
		API:       s.API.Clone(),
		Tools:     s.Tools.Clone(),
		Telemetry: s.Telemetry.Clone(),
		Memory:    s.Memory.Clone(),
	}
}
