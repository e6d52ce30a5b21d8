package cli

import (
	"fmt"
	"os"

	cligenerateconfigs "github.com/Ethernal-Tech/fx-oracle/cli/generateconfigs"
	clirunoracle "github.com/Ethernal-Tech/fx-oracle/cli/runoracle"
	cliversion "github.com/Ethernal-Tech/fx-oracle/cli/version"
	"github.com/spf13/cobra"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Short: "cli commands for fx oracle",
		},
	}

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		clirunoracle.GetRunOracleCommand(),
		cligenerateconfigs.GetGenerateConfigsCommand(),
		cliversion.GetVersionCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
