package cligenerateconfigs

import (
	"bytes"
	"fmt"

	"github.com/Ethernal-Tech/fx-oracle/common"
)

type CmdResult struct {
	configPath string
}

func (r CmdResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(common.FormatKV(
		[]string{
			fmt.Sprintf("RateOracle config|%s", r.configPath),
		}))

	return buffer.String()
}
