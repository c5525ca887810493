package tokens

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/pkg/errors"
)

type DecodeSettings struct {
	Model string `glazed.parameter:"model"`
	Codec string `glazed.parameter:"codec"`
	Input string `glazed.parameter:"input"`
}

type DecodeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*DecodeCommand)(nil)

func NewDecodeCommand() (*DecodeCommand, error) {
	return &DecodeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"decode",
			cmds.WithShort("Decode space-separated token ids back into text"),
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

func (c *DecodeCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &DecodeSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize decode settings")
	}

	codec, err := resolveCodec(s.Model, s.Codec)
	if err != nil {
		return err
	}

	var ids []uint
	for _, field := range strings.Fields(s.Input) {
		id, err := strconv.Atoi(field)
		if err != nil {
			return errors.Errorf("invalid token id: %s", field)
		}
		ids = append(ids, uint(id))
	}

	text, err := codec.Decode(ids)
	if err != nil {
		return errors.Wrap(err, "failed to decode token ids")
	}

	_, err = io.WriteString(w, text)
	return err
}
