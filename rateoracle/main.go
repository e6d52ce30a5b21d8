package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ethernal-Tech/fx-oracle/common"
	loggerInfra "github.com/Ethernal-Tech/fx-oracle/logger"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/rateoracle"
)

func main() {
	config, err := common.LoadJson[core.AppConfig]("config.json")
	if err != nil {
		fmt.Printf("failed to load config file\n")
		os.Exit(1)
	}

	config.FillOut()
	config.PopulateFromEnv()

	logger, err := loggerInfra.NewLogger(config.Settings.Logger)
	if err != nil {
		fmt.Printf("failed to create logger\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rateOracle, err := rateoracle.NewRateOracle(ctx, config, true, logger)
	if err != nil {
		fmt.Printf("failed to create NewRateOracle\n")
		os.Exit(1)
	}

	defer func() {
		cancel()

		if err := rateOracle.Dispose(); err != nil {
			logger.Error("error while disposing rate oracle", "err", err)
		}
	}()

	if err := rateOracle.Start(); err != nil {
		fmt.Printf("failed to start rateOracle\n")
		os.Exit(1)
	}

	signalChannel := make(chan os.Signal, 1)
	// Notify the signalChannel when the interrupt signal is received (Ctrl+C)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	select {
	case <-signalChannel:
	case <-rateOracle.ErrorCh():
	}
}
