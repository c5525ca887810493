package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/go-go-golems/jiminy/cmd/jiminy/cmds"
	"github.com/go-go-golems/jiminy/cmd/jiminy/cmds/tokens"
	"github.com/go-go-golems/jiminy/pkg/doc"
	"github.com/go-go-golems/jiminy/pkg/layers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jiminy",
	Short: "jiminy is a conversational coding assistant for the terminal",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		err := clay.InitLogger()
		cobra.CheckErr(err)
	},
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	err := clay.InitViper("jiminy", rootCmd)
	cobra.CheckErr(err)
	err = clay.InitLogger()
	cobra.CheckErr(err)

	helpSystem := help.NewHelpSystem()
	err = doc.AddDocToHelpSystem(helpSystem)
	cobra.CheckErr(err)
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	chatCmd, err := cmds.NewChatCommand()
	cobra.CheckErr(err)
	chatCobraCmd, err := cli.BuildCobraCommand(chatCmd,
		cli.WithCobraMiddlewaresFunc(layers.GetCobraCommandJiminyMiddlewares),
	)
	cobra.CheckErr(err)
	rootCmd.AddCommand(chatCobraCmd)

	tokens.RegisterCommands(rootCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
