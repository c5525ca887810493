package tokens

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/tiktoken-go/tokenizer"
)

type ListModelsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*ListModelsCommand)(nil)

func NewListModelsCommand() (*ListModelsCommand, error) {
	glazedLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	return &ListModelsCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list-models",
			cmds.WithShort("List models with a known tokenizer"),
			cmds.WithLayersList(glazedLayer),
		),
	}, nil
}

func (c *ListModelsCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	models := []tokenizer.Model{
		tokenizer.GPT4,
		tokenizer.GPT35Turbo,
		tokenizer.TextEmbeddingAda002,
		tokenizer.TextDavinci003,
		tokenizer.TextDavinci002,
		tokenizer.CodeDavinci002,
		tokenizer.CodeDavinci001,
		tokenizer.Davinci,
		tokenizer.Curie,
		tokenizer.Babbage,
		tokenizer.Ada,
	}

	for _, m := range models {
		row := types.NewRow(
			types.MRP("model_name", m),
			types.MRP("codec", defaultEncoding(string(m))),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type ListCodecsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*ListCodecsCommand)(nil)

func NewListCodecsCommand() (*ListCodecsCommand, error) {
	glazedLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	return &ListCodecsCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list-codecs",
			cmds.WithShort("List available codecs"),
			cmds.WithLayersList(glazedLayer),
		),
	}, nil
}

func (c *ListCodecsCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	encodings := []tokenizer.Encoding{
		tokenizer.R50kBase,
		tokenizer.P50kBase,
		tokenizer.P50kEdit,
		tokenizer.Cl100kBase,
	}

	for _, e := range encodings {
		row := types.NewRow(
			types.MRP("codec_name", e),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
