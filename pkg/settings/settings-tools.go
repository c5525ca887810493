package settings

import (
	_ "embed"

	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/huandu/go-clone"
)

// Approval modes for tool calls that request confirmation.
const (
	ApprovalModeInteractive = "interactive"
	ApprovalModeAutoEdit    = "auto-edit"
	ApprovalModeYolo        = "yolo"
)

type ToolSettings struct {
	ApprovalMode     string   `yaml:"approval_mode,omitempty" glazed.parameter:"approval-mode"`
	AllowedTools     []string `yaml:"allowed_tools,omitempty" glazed.parameter:"allowed-tools"`
	MaxParallelTools int      `yaml:"max_parallel_tools,omitempty" glazed.parameter:"max-parallel-tools"`
}

func NewToolSettings() (*ToolSettings, error) {
	s := &ToolSettings{
		AllowedTools: []string{},
	}

	p, err := NewToolsParameterLayer()
	if err != nil {
		return nil, err
	}
	err = p.InitializeStructFromParameterDefaults(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ToolSettings) Clone() *ToolSettings {
	return clone.Clone(s).(*ToolSettings)
}

//go:embed "flags/tools.yaml"
var toolsFlagsYAML []byte

type ToolsParameterLayer struct {
	*layers.ParameterLayerImpl `yaml:",inline"`
}

const ToolsSlug = "tools"

func NewToolsParameterLayer(options ...layers.ParameterLayerOptions) (*ToolsParameterLayer, error) {
	ret, err := layers.NewParameterLayerFromYAML(toolsFlagsYAML, options...)
	if err != nil {
		return nil, err
	}

	return &ToolsParameterLayer{
		ParameterLayerImpl: ret,
	}, nil
}
