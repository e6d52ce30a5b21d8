package clirunoracle

import (
	"github.com/Ethernal-Tech/fx-oracle/common"
)

type CmdResult struct{}

func (r CmdResult) GetOutput() string {
	return common.FormatKV([]string{
		"Status|rate oracle stopped",
	})
}
