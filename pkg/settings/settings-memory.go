package settings

import (
	_ "embed"

	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/huandu/go-clone"
)

type MemorySettings struct {
	ContextFileNames []string `yaml:"context_file_names,omitempty" glazed.parameter:"context-file-names"`
	MaxFiles         int      `yaml:"max_files,omitempty" glazed.parameter:"memory-max-files"`
	MaxDepth         int      `yaml:"max_depth,omitempty" glazed.parameter:"memory-max-depth"`
	IgnoreDirs       []string `yaml:"ignore_dirs,omitempty" glazed.parameter:"memory-ignore"`
}

func NewMemorySettings() (*MemorySettings, error) {
	s := &MemorySettings{
		ContextFileNames: []string{},
		IgnoreDirs:       []string{},
	}

	p, err := NewMemoryParameterLayer()
	if err != nil {
		return nil, err
	}
	err = p.InitializeStructFromParameterDefaults(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *MemorySettings) Clone() *MemorySettings {
	return clone.Clone(s).(*MemorySettings)
}

//go:embed "flags/memory.yaml"
var memoryFlagsYAML []byte

type MemoryParameterLayer struct {
	*layers.ParameterLayerImpl `yaml:",inline"`
}

const MemorySlug = "memory"

func NewMemoryParameterLayer(options ...layers.ParameterLayerOptions) (*MemoryParameterLayer, error) {
	ret, err := layers.NewParameterLayerFromYAML(memoryFlagsYAML, options...)
	if err != nil {
		return nil, err
	}

	return &MemoryParameterLayer{
		ParameterLayerImpl: ret,
	}, nil
}
