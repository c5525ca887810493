package settings

import (
	_ "embed"

	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/huandu/go-clone"
)

type TelemetrySettings struct {
	// UsageStatisticsEnabled gates the whole pipeline; everything is a no-op
	// when false.
	UsageStatisticsEnabled bool   `yaml:"usage_statistics_enabled,omitempty" glazed.parameter:"usage-statistics-enabled"`
	Endpoint               string `yaml:"endpoint,omitempty" glazed.parameter:"telemetry-endpoint"`
	FlushIntervalMs        int    `yaml:"flush_interval_ms,omitempty" glazed.parameter:"telemetry-flush-interval-ms"`
	Email                  string `yaml:"email,omitempty" glazed.parameter:"telemetry-email"`
}

func NewTelemetrySettings() (*TelemetrySettings, error) {
	s := &TelemetrySettings{}

	p, err := NewTelemetryParameterLayer()
	if err != nil {
		return nil, err
	}
	err = p.InitializeStructFromParameterDefaults(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *TelemetrySettings) Clone() *TelemetrySettings {
	return clone.Clone(s).(*TelemetrySettings)
}

//go:embed "flags/telemetry.yaml"
var telemetryFlagsYAML []byte

type TelemetryParameterLayer struct {
	*layers.ParameterLayerImpl `yaml:",inline"`
}

const TelemetrySlug = "telemetry"

func NewTelemetryParameterLayer(options ...layers.ParameterLayerOptions) (*TelemetryParameterLayer, error) {
	ret, err := layers.NewParameterLayerFromYAML(telemetryFlagsYAML, options...)
	if err != nil {
		return nil, err
	}

	return &TelemetryParameterLayer{
		ParameterLayerImpl: ret,
	}, nil
}
