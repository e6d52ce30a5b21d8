package common

import (
	"fmt"
	"io"
	"os"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
)

// CommandResult is implemented by cli command results that know how to render
// themselves for the user.
type CommandResult interface {
	GetOutput() string
}

type OutputFormatter interface {
	SetError(err error)
	SetCommandResult(result CommandResult)
	WriteOutput()
}

func InitializeOutputter(cmd *cobra.Command) OutputFormatter {
	return &commandOutputter{
		writer: cmd.OutOrStdout(),
	}
}

// CommandExecutor is implemented by cli params objects that carry out their
// command once flags are validated.
type CommandExecutor interface {
	Execute() (CommandResult, error)
}

// GetCliRunCommand wraps a CommandExecutor into a cobra run function with the
// shared outputter handling.
func GetCliRunCommand(executor CommandExecutor) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, _ []string) {
		outputter := InitializeOutputter(cmd)
		defer outputter.WriteOutput()

		result, err := executor.Execute()
		if err != nil {
			outputter.SetError(err)

			return
		}

		outputter.SetCommandResult(result)
	}
}

type commandOutputter struct {
	writer io.Writer
	err    error
	result CommandResult
}

func (o *commandOutputter) SetError(err error) {
	o.err = err
}

func (o *commandOutputter) SetCommandResult(result CommandResult) {
	o.result = result
}

func (o *commandOutputter) WriteOutput() {
	if o.err != nil {
		_, _ = fmt.Fprintln(os.Stderr, o.err.Error())

		return
	}

	if o.result != nil {
		_, _ = fmt.Fprintln(o.writer, o.result.GetOutput())
	}
}

// FormatKV formats key value pairs (given as "key|value" lines) into aligned
// columns.
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}
