package tokens

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/pkg/errors"
)

type CountSettings struct {
	Model string `glazed.parameter:"model"`
	Codec string `glazed.parameter:"codec"`
	Input string `glazed.parameter:"input"`
}

type CountCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*CountCommand)(nil)

func NewCountCommand() (*CountCommand, error) {
	return &CountCommand{
		CommandDescription: cmds.NewCommandDescription(
			"count",
			cmds.WithShort("Count the tokens in a file or prompt"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"model",
					parameters.ParameterTypeString,
					parameters.WithHelp("Model whose tokenizer to use"),
					parameters.WithDefault("gpt-4"),
				),
				parameters.NewParameterDefinition(
					"codec",
					parameters.ParameterTypeString,
					parameters.WithHelp("Codec overriding the model's default encoding"),
					parameters.WithDefault(""),
				),
			),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"input",
					parameters.ParameterTypeStringFromFiles,
					parameters.WithHelp("Input file, - for stdin"),
				),
			),
		),
	}, nil
}

func (c *CountCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &CountSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize count settings")
	}

	codec, err := resolveCodec(s.Model, s.Codec)
	if err != nil {
		return err
	}
	codecName := s.Codec
	if codecName == "" {
		codecName = defaultEncoding(s.Model)
	}

	ids, _, err := codec.Encode(s.Input)
	if err != nil {
		return errors.Wrap(err, "failed to encode input")
	}

	_, err = fmt.Fprintf(w, "Model: %s\nCodec: %s\nTotal tokens: %d\n", s.Model, codecName, len(ids))
	return err
}
