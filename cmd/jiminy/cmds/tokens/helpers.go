// Package tokens holds developer utilities for prompt budgeting: counting,
// encoding and decoding text with the tokenizers the supported models use.
package tokens

import (
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tiktoken-go/tokenizer"
)

// resolveCodec prefers an explicitly named codec over the model's default
// encoding.
func resolveCodec(model string, codec string) (tokenizer.Codec, error) {
	if codec != "" {
		c, err := tokenizer.Get(tokenizer.Encoding(codec))
		if err != nil {
			return nil, errors.Wrapf(err, "unknown codec %s", codec)
		}
		return c, nil
	}
	c, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		return nil, errors.Wrapf(err, "no tokenizer for model %s", model)
	}
	return c, nil
}

func defaultEncoding(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-4"),
		strings.HasPrefix(model, "gpt-3.5-turbo"),
		strings.HasPrefix(model, "text-embedding-ada-002"):
		return "cl100k_base"
	case strings.HasPrefix(model, "text-davinci-002"),
		strings.HasPrefix(model, "text-davinci-003"):
		return "p50k_base"
	default:
		return "r50k_base"
	}
}

func RegisterCommands(rootCmd *cobra.Command) {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Count, encode and decode tokens",
	}

	countCmd, err := NewCountCommand()
	cobra.CheckErr(err)
	countCobraCmd, err := cli.BuildCobraCommandFromWriterCommand(countCmd)
	cobra.CheckErr(err)
	tokensCmd.AddCommand(countCobraCmd)

	encodeCmd, err := NewEncodeCommand()
	cobra.CheckErr(err)
	encodeCobraCmd, err := cli.BuildCobraCommandFromWriterCommand(encodeCmd)
	cobra.CheckErr(err)
	tokensCmd.AddCommand(encodeCobraCmd)

	decodeCmd, err := NewDecodeCommand()
	cobra.CheckErr(err)
	decodeCobraCmd, err := cli.BuildCobraCommandFromWriterCommand(decodeCmd)
	cobra.CheckErr(err)
	tokensCmd.AddCommand(decodeCobraCmd)

	listModelsCmd, err := NewListModelsCommand()
	cobra.CheckErr(err)
	listModelsCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(listModelsCmd)
	cobra.CheckErr(err)
	tokensCmd.AddCommand(listModelsCobraCmd)

	listCodecsCmd, err := NewListCodecsCommand()
	cobra.CheckErr(err)
	listCodecsCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(listCodecsCmd)
	cobra.CheckErr(err)
	tokensCmd.AddCommand(listCodecsCobraCmd)

	rootCmd.AddCommand(tokensCmd)
}
