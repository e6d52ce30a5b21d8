package main

import (
	"github.com/Ethernal-Tech/fx-oracle/cli"
)

func main() {
	cli.NewRootCommand().Execute()
}
