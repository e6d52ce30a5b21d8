package clirunoracle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ethernal-Tech/fx-oracle/common"
	loggerInfra "github.com/Ethernal-Tech/fx-oracle/logger"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/rateoracle"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var initParamsData = &initParams{}

func GetRunOracleCommand() *cobra.Command {
	runOracleCmd := &cobra.Command{
		Use:     "run-oracle",
		Short:   "runs the fx rate oracle",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	initParamsData.setFlags(runOracleCmd)

	return runOracleCmd
}

func runPreRun(_ *cobra.Command, _ []string) error {
	return initParamsData.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := common.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	// provider keys and redis credentials can come from a local .env file
	_ = godotenv.Load()

	appConfig, err := common.LoadConfig[core.AppConfig](initParamsData.config, "")
	if err != nil {
		outputter.SetError(err)

		return
	}

	appConfig.FillOut()
	appConfig.PopulateFromEnv()

	logger, err := loggerInfra.NewLogger(appConfig.Settings.Logger)
	if err != nil {
		outputter.SetError(err)

		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	rateOracle, err := rateoracle.NewRateOracle(ctx, appConfig, initParamsData.runAPI, logger)
	if err != nil {
		cancel()
		logger.Error("rate oracle creation failed", "err", err)
		outputter.SetError(err)

		return
	}

	err = rateOracle.Start()
	if err != nil {
		cancel()
		logger.Error("rate oracle start failed", "err", err)
		outputter.SetError(err)

		return
	}

	defer func() {
		cancel()

		if err := rateOracle.Dispose(); err != nil {
			logger.Error("error while disposing rate oracle", "err", err)
		}
	}()

	signalChannel := make(chan os.Signal, 1)
	// Notify the signalChannel when the interrupt signal is received (Ctrl+C)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	select {
	case <-signalChannel:
	case err = <-rateOracle.ErrorCh():
		outputter.SetError(err)
	}

	outputter.SetCommandResult(&CmdResult{})
}
