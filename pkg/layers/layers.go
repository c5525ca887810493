package layers

import (
	"fmt"
	"os"

	"github.com/go-go-golems/glazed/pkg/cli"
	cmdlayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/middlewares"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	glazedConfig "github.com/go-go-golems/glazed/pkg/config"
	"github.com/go-go-golems/jiminy/pkg/settings"
	"github.com/spf13/cobra"
)

// CreateOption configures behavior of CreateJiminyLayers.
type CreateOption func(*createOptions)
type createOptions struct {
	settings *settings.Settings
}

// WithDefaultsFromSettings uses the given Settings for layer defaults.
func WithDefaultsFromSettings(s *settings.Settings) CreateOption {
	return func(o *createOptions) {
		o.settings = s
	}
}

// CreateJiminyLayers returns the parameter layers for jiminy settings.
// If no Settings are provided via WithDefaultsFromSettings, settings.NewSettings() is used.
func CreateJiminyLayers(opts ...CreateOption) ([]cmdlayers.ParameterLayer, error) {
	var co createOptions
	for _, opt := range opts {
		opt(&co)
	}
	ss := co.settings
	if ss == nil {
		var err error
		ss, err = settings.NewSettings()
		if err != nil {
			return nil, err
		}
	}

	chatParameterLayer, err := settings.NewChatParameterLayer(cmdlayers.WithDefaults(ss.Chat))
	if err != nil {
		return nil, err
	}

	apiParameterLayer, err := settings.NewAPIParameterLayer(cmdlayers.WithDefaults(ss.API))
	if err != nil {
		return nil, err
	}

	toolsParameterLayer, err := settings.NewToolsParameterLayer(cmdlayers.WithDefaults(ss.Tools))
	if err != nil {
		return nil, err
	}

	telemetryParameterLayer, err := settings.NewTelemetryParameterLayer(cmdlayers.WithDefaults(ss.Telemetry))
	if err != nil {
		return nil, err
	}

	memoryParameterLayer, err := settings.NewMemoryParameterLayer(cmdlayers.WithDefaults(ss.Memory))
	if err != nil {
		return nil, err
	}

	result := []cmdlayers.ParameterLayer{
		chatParameterLayer,
		apiParameterLayer,
		toolsParameterLayer,
		telemetryParameterLayer,
		memoryParameterLayer,
	}
	return result, nil
}

func GetCobraCommandJiminyMiddlewares(
	parsedCommandLayers *cmdlayers.ParsedLayers,
	cmd *cobra.Command,
	args []string,
) ([]middlewares.Middleware, error) {
	// Mapper to filter out non-layer keys from the config file. Reused for
	// the bootstrap parse (profile selection) and the main config middleware.
	configMapper := func(rawConfig interface{}) (map[string]map[string]interface{}, error) {
		configMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected map[string]interface{}, got %T", rawConfig)
		}

		result := make(map[string]map[string]interface{})

		for key, value := range configMap {
			// If the value is a map, treat the key as a layer slug
			if layerParams, ok := value.(map[string]interface{}); ok {
				result[key] = layerParams
			}
		}

		return result, nil
	}

	// Profile selection (profile-settings.profile + profile-settings.profile-file)
	// must be resolved from defaults + config + env + flags BEFORE instantiating
	// the profiles middleware, so we do a bootstrap parse first.

	// 1) Bootstrap command settings from Cobra + env + defaults (no config).
	commandSettings := &cli.CommandSettings{}
	commandSettingsLayer, err := cli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	bootstrapCommandLayers := cmdlayers.NewParameterLayers(
		cmdlayers.WithLayers(commandSettingsLayer),
	)
	bootstrapCommandParsed := cmdlayers.NewParsedLayers()
	err = middlewares.ExecuteMiddlewares(
		bootstrapCommandLayers,
		bootstrapCommandParsed,
		middlewares.ParseFromCobraCommand(cmd, parameters.WithParseStepSource("cobra")),
		middlewares.UpdateFromEnv("JIMINY", parameters.WithParseStepSource("env")),
		middlewares.SetFromDefaults(parameters.WithParseStepSource("defaults")),
	)
	if err != nil {
		return nil, err
	}
	if err := bootstrapCommandParsed.InitializeStruct(cli.CommandSettingsSlug, commandSettings); err != nil {
		return nil, err
	}
	if commandSettings.ConfigFile == "" && commandSettings.LoadParametersFromFile == "" && parsedCommandLayers != nil {
		_ = parsedCommandLayers.InitializeStruct(cli.CommandSettingsSlug, commandSettings)
	}

	// 2) Resolve config files once (low -> high precedence) so bootstrap + main chain are consistent.
	var configFiles []string
	configPath, err := glazedConfig.ResolveAppConfigPath("jiminy", "")
	if err == nil && configPath != "" {
		configFiles = append(configFiles, configPath)
	}
	if commandSettings.ConfigFile != "" {
		configFiles = append(configFiles, commandSettings.ConfigFile)
	}
	if commandSettings.LoadParametersFromFile != "" {
		configFiles = append(configFiles, commandSettings.LoadParametersFromFile)
	}

	// 3) Bootstrap profile settings from config + env + Cobra + defaults.
	profileSettings := &cli.ProfileSettings{}
	profileSettingsLayer, err := cli.NewProfileSettingsLayer()
	if err != nil {
		return nil, err
	}
	bootstrapProfileLayers := cmdlayers.NewParameterLayers(
		cmdlayers.WithLayers(profileSettingsLayer),
	)
	bootstrapProfileParsed := cmdlayers.NewParsedLayers()
	err = middlewares.ExecuteMiddlewares(
		bootstrapProfileLayers,
		bootstrapProfileParsed,
		middlewares.ParseFromCobraCommand(cmd, parameters.WithParseStepSource("cobra")),
		middlewares.UpdateFromEnv("JIMINY", parameters.WithParseStepSource("env")),
		middlewares.LoadParametersFromFiles(
			configFiles,
			middlewares.WithConfigFileMapper(configMapper),
			middlewares.WithParseOptions(parameters.WithParseStepSource("config")),
		),
		middlewares.SetFromDefaults(parameters.WithParseStepSource("defaults")),
	)
	if err != nil {
		return nil, err
	}
	if err := bootstrapProfileParsed.InitializeStruct(cli.ProfileSettingsSlug, profileSettings); err != nil {
		return nil, err
	}
	if profileSettings.Profile == "" && profileSettings.ProfileFile == "" && parsedCommandLayers != nil {
		_ = parsedCommandLayers.InitializeStruct(cli.ProfileSettingsSlug, profileSettings)
	}

	// Build middleware chain in reverse precedence order (last applied has highest precedence)
	middlewares_ := []middlewares.Middleware{
		// Highest precedence: command-line flags
		middlewares.ParseFromCobraCommand(cmd,
			parameters.WithParseStepSource("cobra"),
		),
		// Positional arguments
		middlewares.GatherArguments(args,
			parameters.WithParseStepSource("arguments"),
		),
	}

	// Environment variables (JIMINY_*)
	middlewares_ = append(middlewares_,
		middlewares.WrapWithWhitelistedLayers(
			[]string{
				settings.ChatSlug,
				settings.APISlug,
				settings.ToolsSlug,
				settings.TelemetrySlug,
				settings.MemorySlug,
				cli.ProfileSettingsSlug,
			},
			middlewares.UpdateFromEnv("JIMINY",
				parameters.WithParseStepSource("env"),
			),
		),
	)

	xdgConfigPath, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}

	// Profile values load above config and defaults, below env and flags.
	defaultProfileFile := fmt.Sprintf("%s/jiminy/profiles.yaml", xdgConfigPath)
	if profileSettings.ProfileFile == "" {
		profileSettings.ProfileFile = defaultProfileFile
	}
	if profileSettings.Profile == "" {
		profileSettings.Profile = "default"
	}
	middlewares_ = append(middlewares_,
		middlewares.GatherFlagsFromProfiles(
			defaultProfileFile,
			profileSettings.ProfileFile,
			profileSettings.Profile,
			parameters.WithParseStepSource("profiles"),
			parameters.WithParseStepMetadata(map[string]interface{}{
				"profileFile": profileSettings.ProfileFile,
				"profile":     profileSettings.Profile,
			}),
		),
	)

	// Config files (low -> high precedence), resolved once above.
	//
	// NOTE: placed AFTER the profiles middleware in the slice ordering. Glazed
	// value-setting middlewares call next(...) first and then update
	// parsedLayers, so later middlewares in the slice apply earlier. Config
	// therefore applies BEFORE profiles, and profiles override config (while
	// env/flags still override both).
	middlewares_ = append(middlewares_,
		middlewares.LoadParametersFromFiles(
			configFiles,
			middlewares.WithConfigFileMapper(configMapper),
			middlewares.WithParseOptions(parameters.WithParseStepSource("config")),
		),
	)

	// Lowest precedence: defaults
	middlewares_ = append(middlewares_,
		middlewares.SetFromDefaults(parameters.WithParseStepSource("defaults")),
	)

	return middlewares_, nil
}
