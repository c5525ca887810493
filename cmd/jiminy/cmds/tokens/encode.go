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

type EncodeSettings struct {
	Model string `glazed.parameter:"model"`
	Codec string `glazed.parameter:"codec"`
	Input string `glazed.parameter:"input"`
}

type EncodeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*EncodeCommand)(nil)

func NewEncodeCommand() (*EncodeCommand, error) {
	return &EncodeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"encode",
			cmds.WithShort("Encode text into space-separated token ids"),
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

func (c *EncodeCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &EncodeSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize encode settings")
	}

	codec, err := resolveCodec(s.Model, s.Codec)
	if err != nil {
		return err
	}

	ids, _, err := codec.Encode(s.Input)
	if err != nil {
		return errors.Wrap(err, "failed to encode input")
	}

	textIds := make([]string, 0, len(ids))
	for _, id := range ids {
		textIds = append(textIds, strconv.Itoa(int(id)))
	}

	_, err = io.WriteString(w, strings.Join(textIds, " "))
	return err
}
