package cliversion

import (
	"bytes"
	"fmt"

	"github.com/Ethernal-Tech/fx-oracle/common"
	"github.com/Ethernal-Tech/fx-oracle/versioning"
	"github.com/spf13/cobra"
)

func GetVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Returns the current fx-oracle version",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := common.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	outputter.SetCommandResult(
		&versionCmdResult{
			Commit:    versioning.Commit,
			Branch:    versioning.Branch,
			BuildTime: versioning.BuildTime,
		},
	)
}

type versionCmdResult struct {
	Commit    string
	Branch    string
	BuildTime string
}

func (r versionCmdResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(common.FormatKV(
		[]string{
			fmt.Sprintf("Commit|%s", r.Commit),
			fmt.Sprintf("Branch|%s", r.Branch),
			fmt.Sprintf("Build Time|%s", r.BuildTime),
		}))

	return buffer.String()
}
